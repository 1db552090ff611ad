package models

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
)

// OperationID builds the composite lock id "{operation}-{recordID}".
func OperationID(operation string, recordID int64) string {
	return operation + "-" + strconv.FormatInt(recordID, 10)
}

// OperationLock mirrors a server lock row.
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

// Pending reports a lock that is neither finished nor errored.
func (l *OperationLock) Pending() bool {
	return !l.Finished && !l.Errored
}

// Active reports a pending lock stepped within the staleness window.
func (l *OperationLock) Active(now time.Time, window time.Duration) bool {
	if !l.Pending() || l.LastStep == nil {
		return false
	}
	return now.Sub(*l.LastStep) < window
}

// Foreign reports an active lock held by another session.
func (l *OperationLock) Foreign(session string, now time.Time, window time.Duration) bool {
	return l.Active(now, window) && l.LastStepSessionID != session
}

// Resumable reports a pending lock last stepped by this session, however
// old it is.
func (l *OperationLock) Resumable(session string) bool {
	return l.Pending() && l.LastStepSessionID == session
}

// Stale reports a pending lock of another session that went quiet.
func (l *OperationLock) Stale(session string, now time.Time, window time.Duration) bool {
	return l.Pending() && l.LastStepSessionID != session && !l.Active(now, window)
}

// ValidOperation reports whether name is a known operation.
func ValidOperation(name string) bool {
	return name == common.OperationParse || name == common.OperationTranslate
}
