package domain

import (
	"fmt"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
)

// Status is the three-valued health status shared by players and enemies.
// Numeric hit points are a legacy representation and never reach the API
// surface.
type Status string

const (
	StatusHealthy Status = "Healthy"
	StatusWounded Status = "Wounded"
	StatusDead    Status = "Dead"
)

func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case StatusHealthy, StatusWounded, StatusDead:
		return Status(v), nil
	default:
		return "", apierr.Invalid(apierr.Field(
			"status",
			fmt.Sprintf("invalid status %q: must be one of Healthy, Wounded, Dead", v),
			"enum",
		))
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusHealthy, StatusWounded, StatusDead:
		return true
	}
	return false
}

// CompletionState tracks quest progress.
type CompletionState string

const (
	QuestNotStarted CompletionState = "not_started"
	QuestInProgress CompletionState = "in_progress"
	QuestCompleted  CompletionState = "completed"
)

func ParseCompletionState(v string) (CompletionState, error) {
	switch CompletionState(v) {
	case QuestNotStarted, QuestInProgress, QuestCompleted:
		return CompletionState(v), nil
	default:
		return "", apierr.Invalid(apierr.Field(
			"completion_state",
			fmt.Sprintf("invalid completion_state %q: must be one of not_started, in_progress, completed", v),
			"enum",
		))
	}
}
