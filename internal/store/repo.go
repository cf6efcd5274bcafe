package store

import (
	"context"
	"errors"
	"time"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/domain"
)

// ErrNotFound is returned when a referenced user, case or file row does
// not exist.
var ErrNotFound = errors.New("not found")

// Repo defines storage operations for users, cases and attachments.
type Repo interface {
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)

	CreateCase(ctx context.Context, c *domain.Case) (int64, error)
	// CreateCaseWithFiles inserts the case and its attachment rows in one
	// transaction; a failed commit leaves no rows behind.
	CreateCaseWithFiles(ctx context.Context, c *domain.Case, files []domain.File) (int64, error)
	GetCase(ctx context.Context, id int64) (*domain.Case, error)

	// ListUnfinished returns every active case across all users; the scan
	// order is unspecified.
	ListUnfinished(ctx context.Context) ([]domain.Case, error)
	ListActive(ctx context.Context, userID string) ([]domain.Case, error)
	ListFinished(ctx context.Context, userID string) ([]domain.Case, error)
	// ListToday returns the user's active cases whose deadline or original
	// deadline falls on the same calendar day as day.
	ListToday(ctx context.Context, userID string, day time.Time) ([]domain.Case, error)

	SetFinished(ctx context.Context, caseID int64, finished bool) error
	SetLastNotification(ctx context.Context, caseID int64, t time.Time) error
	UpdateName(ctx context.Context, caseID int64, name string) error
	UpdateDescription(ctx context.Context, caseID int64, description string) error
	// UpdateDeadline moves the deadline; alsoOriginal additionally resets
	// original_deadline (non-repeating date edits).
	UpdateDeadline(ctx context.Context, caseID int64, deadline time.Time, alsoOriginal bool) error
	// UpdateRepeat changes the recurrence rule. Setting RepeatNone resets
	// deadline_date back to original_deadline.
	UpdateRepeat(ctx context.Context, caseID int64, r domain.Repeat) error
	// RestoreCase reactivates a finished case at a new deadline, resetting
	// both deadline_date and original_deadline.
	RestoreCase(ctx context.Context, caseID int64, deadline time.Time) error
	// DeleteCase removes the case and all its files.
	DeleteCase(ctx context.Context, caseID int64) error

	AddFiles(ctx context.Context, caseID int64, files []domain.File) error
	// ReplaceFiles deletes every persisted file of the case and inserts the
	// given set in one transaction.
	ReplaceFiles(ctx context.Context, caseID int64, files []domain.File) error
	ListFiles(ctx context.Context, caseID int64) ([]domain.File, error)
	GetFile(ctx context.Context, id int64) (*domain.File, error)
	// DeleteFilesByName removes file rows with the given display name across
	// the user's cases.
	DeleteFilesByName(ctx context.Context, userID, name string) (int64, error)

	Close() error
}
