package models

import "time"

// OperationLock is a row of the operations table: the cross-session record
// of a parse or translate run on one record.
type OperationLock struct {
	ID                 int64
	RecordID           int64
	OperationID        string
	OperationName      string
	Progress           int
	ProgressOf         int
	Page               int
	Pages              int
	Message            string
	TextDelta          string
	PageDelta          string
	RecordText         string
	StartedOn          *time.Time
	StartedOnUserAgent string
	StartedOnSessionID string
	LastStep           *time.Time
	LastStepUserAgent  string
	LastStepSessionID  string
	Finished           bool
	Errored            bool
	ErrorMessage       string
}

// OperationQuery selects locks by operation id, a single record or a set of
// records, in that order of precedence.
type OperationQuery struct {
	RecordID    int64
	RecordIDs   []int64
	OperationID string
}

func (q OperationQuery) Empty() bool {
	return q.OperationID == "" && q.RecordID == 0 && len(q.RecordIDs) == 0
}
