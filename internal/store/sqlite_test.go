package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepo, id string) {
	t.Helper()
	require.NoError(t, repo.UpsertUser(context.Background(), &domain.User{
		ID: id, Username: "u" + id, FirstName: "First", CreatedAt: time.Now(),
	}))
}

func seedCase(t *testing.T, repo *SQLiteRepo, userID string, rep domain.Repeat, deadline time.Time) int64 {
	t.Helper()
	id, err := repo.CreateCase(context.Background(), &domain.Case{
		UserID:           userID,
		Name:             "case",
		Description:      "desc",
		StartDate:        time.Now(),
		DeadlineDate:     deadline,
		OriginalDeadline: deadline,
		Repeat:           rep,
	})
	require.NoError(t, err)
	return id
}

func TestUpsertUser_RefreshesDisplayFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedUser(t, repo, "42")
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ID: "42", Username: "renamed"}))

	u, err := repo.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "renamed", u.Username)

	_, err = repo.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAndGetCase_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")

	deadline := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)
	id := seedCase(t, repo, "42", domain.RepeatWeekly, deadline)

	c, err := repo.GetCase(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "42", c.UserID)
	assert.Equal(t, domain.RepeatWeekly, c.Repeat)
	assert.True(t, c.DeadlineDate.Equal(deadline))
	assert.True(t, c.OriginalDeadline.Equal(deadline))
	assert.False(t, c.IsFinished)
	assert.Nil(t, c.LastNotification)

	_, err = repo.GetCase(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActive_OrderedByDeadline(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")
	seedUser(t, repo, "7")

	base := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)
	late := seedCase(t, repo, "42", domain.RepeatNone, base.AddDate(0, 0, 2))
	early := seedCase(t, repo, "42", domain.RepeatNone, base)
	done := seedCase(t, repo, "42", domain.RepeatNone, base.AddDate(0, 0, 1))
	require.NoError(t, repo.SetFinished(ctx, done, true))
	seedCase(t, repo, "7", domain.RepeatNone, base) // other user

	active, err := repo.ListActive(ctx, "42")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, early, active[0].ID)
	assert.Equal(t, late, active[1].ID)

	finished, err := repo.ListFinished(ctx, "42")
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, done, finished[0].ID)

	all, err := repo.ListUnfinished(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3) // both users, finished excluded
}

func TestListToday_MatchesEitherDeadlineField(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")

	day := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	todayCase := seedCase(t, repo, "42", domain.RepeatNone, day.Add(10*time.Hour))
	otherDay := seedCase(t, repo, "42", domain.RepeatNone, day.AddDate(0, 0, 3))

	// A repeating case whose deadline moved away but whose original
	// deadline is today still counts.
	moved := seedCase(t, repo, "42", domain.RepeatDaily, day.Add(9*time.Hour))
	require.NoError(t, repo.UpdateDeadline(ctx, moved, day.AddDate(0, 1, 0), false))

	got, err := repo.ListToday(ctx, "42", day.Add(13*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := []int64{got[0].ID, got[1].ID}
	assert.Contains(t, ids, todayCase)
	assert.Contains(t, ids, moved)
	assert.NotContains(t, ids, otherDay)
}

func TestRestoreCase_ResetsBothDeadlines(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")

	orig := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)
	id := seedCase(t, repo, "42", domain.RepeatNone, orig)
	require.NoError(t, repo.SetFinished(ctx, id, true))

	restored := time.Date(2025, time.June, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, repo.RestoreCase(ctx, id, restored))

	c, err := repo.GetCase(ctx, id)
	require.NoError(t, err)
	assert.False(t, c.IsFinished)
	assert.True(t, c.DeadlineDate.Equal(restored))
	assert.True(t, c.OriginalDeadline.Equal(restored))
}

func TestUpdateRepeat_NoneResetsDeadline(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")

	orig := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)
	id := seedCase(t, repo, "42", domain.RepeatWeekly, orig)
	require.NoError(t, repo.UpdateDeadline(ctx, id, orig.AddDate(0, 0, 14), false))

	require.NoError(t, repo.UpdateRepeat(ctx, id, domain.RepeatNone))

	c, err := repo.GetCase(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.RepeatNone, c.Repeat)
	assert.True(t, c.DeadlineDate.Equal(orig), "deadline must snap back to the original")
}

func TestUpdateDeadline_OriginalFlag(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")

	orig := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)
	id := seedCase(t, repo, "42", domain.RepeatNone, orig)

	moved := orig.AddDate(0, 0, 7)
	require.NoError(t, repo.UpdateDeadline(ctx, id, moved, true))

	c, err := repo.GetCase(ctx, id)
	require.NoError(t, err)
	assert.True(t, c.DeadlineDate.Equal(moved))
	assert.True(t, c.OriginalDeadline.Equal(moved))

	assert.ErrorIs(t, repo.UpdateDeadline(ctx, 9999, moved, false), ErrNotFound)
}

func TestDeleteCase_CascadesFiles(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")

	id := seedCase(t, repo, "42", domain.RepeatNone, time.Now())
	require.NoError(t, repo.AddFiles(ctx, id, []domain.File{
		{FileName: "a.pdf", FileURL: "/tmp/a"},
		{FileName: "b.jpg", FileURL: "/tmp/b"},
	}))

	require.NoError(t, repo.DeleteCase(ctx, id))

	_, err := repo.GetCase(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	files, err := repo.ListFiles(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, files)

	assert.ErrorIs(t, repo.DeleteCase(ctx, id), ErrNotFound)
}

func TestReplaceFiles_FullReplace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")

	id := seedCase(t, repo, "42", domain.RepeatNone, time.Now())
	require.NoError(t, repo.AddFiles(ctx, id, []domain.File{
		{FileName: "old1", FileURL: "/tmp/1"},
		{FileName: "old2", FileURL: "/tmp/2"},
	}))

	require.NoError(t, repo.ReplaceFiles(ctx, id, []domain.File{
		{FileName: "new", FileURL: "/tmp/3"},
	}))

	files, err := repo.ListFiles(ctx, id)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new", files[0].FileName)

	f, err := repo.GetFile(ctx, files[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/3", f.FileURL)
}

func TestDeleteFilesByName_ScopedToUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")
	seedUser(t, repo, "7")

	mine := seedCase(t, repo, "42", domain.RepeatNone, time.Now())
	theirs := seedCase(t, repo, "7", domain.RepeatNone, time.Now())
	require.NoError(t, repo.AddFiles(ctx, mine, []domain.File{{FileName: "report.pdf", FileURL: "/tmp/m"}}))
	require.NoError(t, repo.AddFiles(ctx, theirs, []domain.File{{FileName: "report.pdf", FileURL: "/tmp/t"}}))

	n, err := repo.DeleteFilesByName(ctx, "42", "report.pdf")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := repo.ListFiles(ctx, theirs)
	require.NoError(t, err)
	assert.Len(t, left, 1, "other user's file must survive")
}

func TestCreateCaseWithFiles_Atomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")

	draft := func() *domain.Case {
		return &domain.Case{
			UserID: "42", Name: "case", StartDate: time.Now(),
			DeadlineDate: time.Now(), OriginalDeadline: time.Now(),
		}
	}

	// No attachments: exactly one case row and zero file rows.
	bare, err := repo.CreateCaseWithFiles(ctx, draft(), nil)
	require.NoError(t, err)
	files, err := repo.ListFiles(ctx, bare)
	require.NoError(t, err)
	assert.Empty(t, files)

	// N attachments land together with the case.
	withFiles, err := repo.CreateCaseWithFiles(ctx, draft(), []domain.File{
		{FileName: "a.pdf", FileURL: "/tmp/a"},
		{FileName: "b.jpg", FileURL: "/tmp/b"},
		{FileName: "c.png", FileURL: "/tmp/c"},
	})
	require.NoError(t, err)
	files, err = repo.ListFiles(ctx, withFiles)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	active, err := repo.ListActive(ctx, "42")
	require.NoError(t, err)
	require.Len(t, active, 2)

	// A commit that cannot run leaves no rows behind.
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = repo.CreateCaseWithFiles(canceled, draft(), []domain.File{
		{FileName: "d.pdf", FileURL: "/tmp/d"},
	})
	require.Error(t, err)

	active, err = repo.ListActive(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, active, 2, "failed commit must not persist a case")
}

func TestGetCase_KeepsWallClockAcrossZones(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")

	east := time.FixedZone("UTC+3", 3*60*60)
	day := time.Date(2025, time.May, 5, 0, 0, 0, 0, east)
	deadline, err := domain.CombineDateTime(day, "09:00")
	require.NoError(t, err)

	id := seedCase(t, repo, "42", domain.RepeatDaily, deadline)
	c, err := repo.GetCase(ctx, id)
	require.NoError(t, err)
	require.True(t, c.DeadlineDate.Equal(deadline))

	// A daily 09:00 case fires at 09:00 on that zone's wall clock the
	// next day, not at the epoch-shifted hour.
	assert.Equal(t, domain.FireAndReschedule,
		domain.Evaluate(c, time.Date(2025, time.May, 6, 9, 0, 10, 0, east)))
	assert.Equal(t, domain.NoAction,
		domain.Evaluate(c, time.Date(2025, time.May, 6, 6, 0, 10, 0, east)))
}

func TestSetLastNotification(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "42")

	id := seedCase(t, repo, "42", domain.RepeatDaily, time.Now())
	at := time.Date(2025, time.May, 5, 9, 0, 12, 0, time.UTC)
	require.NoError(t, repo.SetLastNotification(ctx, id, at))

	c, err := repo.GetCase(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, c.LastNotification)
	assert.True(t, c.LastNotification.Equal(at.Truncate(time.Second)))
}
