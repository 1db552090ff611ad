package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperationID(t *testing.T) {
	assert.Equal(t, "parse-42", OperationID("parse", 42))
	assert.True(t, ValidOperation("translate"))
	assert.False(t, ValidOperation("ocr"))
}

func TestOperationLock_Predicates(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Minute
	recent := now.Add(-time.Minute)
	old := now.Add(-10 * time.Minute)

	tests := []struct {
		name      string
		lock      OperationLock
		active    bool
		foreign   bool
		resumable bool
		stale     bool
	}{
		{"own recent", OperationLock{LastStep: &recent, LastStepSessionID: "me"}, true, false, true, false},
		{"own old", OperationLock{LastStep: &old, LastStepSessionID: "me"}, false, false, true, false},
		{"other recent", OperationLock{LastStep: &recent, LastStepSessionID: "other"}, true, true, false, false},
		{"other old", OperationLock{LastStep: &old, LastStepSessionID: "other"}, false, false, false, true},
		{"finished", OperationLock{LastStep: &recent, LastStepSessionID: "other", Finished: true}, false, false, false, false},
		{"errored", OperationLock{LastStep: &recent, LastStepSessionID: "me", Errored: true}, false, false, false, false},
		{"never stepped", OperationLock{LastStepSessionID: "other"}, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, tt.lock.Active(now, window), "active")
			assert.Equal(t, tt.foreign, tt.lock.Foreign("me", now, window), "foreign")
			assert.Equal(t, tt.resumable, tt.lock.Resumable("me"), "resumable")
			assert.Equal(t, tt.stale, tt.lock.Stale("me", now, window), "stale")
		})
	}
}
