package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/domain"
)

type fakeStore struct {
	cases    []domain.Case
	listErr  error
	finished []int64
	notified map[int64]time.Time
}

func (f *fakeStore) ListUnfinished(context.Context) ([]domain.Case, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Case
	for _, c := range f.cases {
		if !c.IsFinished {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) SetFinished(_ context.Context, caseID int64, finished bool) error {
	if finished {
		f.finished = append(f.finished, caseID)
	}
	for i := range f.cases {
		if f.cases[i].ID == caseID {
			f.cases[i].IsFinished = finished
		}
	}
	return nil
}

func (f *fakeStore) SetLastNotification(_ context.Context, caseID int64, t time.Time) error {
	if f.notified == nil {
		f.notified = make(map[int64]time.Time)
	}
	f.notified[caseID] = t
	for i := range f.cases {
		if f.cases[i].ID == caseID {
			ts := t
			f.cases[i].LastNotification = &ts
		}
	}
	return nil
}

type fakeSender struct {
	sent    []int64
	failFor map[int64]error
}

func (f *fakeSender) SendReminder(_ string, c domain.Case) error {
	if err := f.failFor[c.ID]; err != nil {
		return err
	}
	f.sent = append(f.sent, c.ID)
	return nil
}

var mondayNoon = time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)

func oneShotAt(id int64, deadline time.Time) domain.Case {
	return domain.Case{ID: id, UserID: "42", Name: "c", DeadlineDate: deadline, OriginalDeadline: deadline}
}

func TestTick_OneShotFiresAndFinishes(t *testing.T) {
	st := &fakeStore{cases: []domain.Case{oneShotAt(1, mondayNoon)}}
	snd := &fakeSender{}
	sc := New(st, snd, zap.NewNop(), time.Minute)

	sc.Tick(context.Background(), mondayNoon.Add(10*time.Second))

	assert.Equal(t, []int64{1}, snd.sent)
	assert.Equal(t, []int64{1}, st.finished)

	// Finished cases never fire again, at any later instant.
	sc.Tick(context.Background(), mondayNoon.Add(20*time.Second))
	sc.Tick(context.Background(), mondayNoon.AddDate(0, 0, 1))
	assert.Len(t, snd.sent, 1)
}

func TestTick_RepeatingUpdatesLastNotificationOnly(t *testing.T) {
	c := oneShotAt(2, mondayNoon)
	c.Repeat = domain.RepeatWeekly
	st := &fakeStore{cases: []domain.Case{c}}
	snd := &fakeSender{}
	sc := New(st, snd, zap.NewNop(), time.Minute)

	now := mondayNoon.Add(5 * time.Second)
	sc.Tick(context.Background(), now)

	assert.Equal(t, []int64{2}, snd.sent)
	assert.Empty(t, st.finished)
	require.Contains(t, st.notified, int64(2))
	assert.True(t, st.notified[2].Equal(now))
	assert.True(t, st.cases[0].DeadlineDate.Equal(mondayNoon), "deadline must not advance")

	// A second tick within the same minute is guarded.
	sc.Tick(context.Background(), mondayNoon.Add(45*time.Second))
	assert.Len(t, snd.sent, 1)

	// Next Monday at the same minute fires again; Tuesday does not.
	sc.Tick(context.Background(), mondayNoon.AddDate(0, 0, 1))
	assert.Len(t, snd.sent, 1)
	sc.Tick(context.Background(), mondayNoon.AddDate(0, 0, 7))
	assert.Len(t, snd.sent, 2)
}

func TestTick_DeliveryFailureSkipsMutation(t *testing.T) {
	st := &fakeStore{cases: []domain.Case{oneShotAt(1, mondayNoon)}}
	snd := &fakeSender{failFor: map[int64]error{1: errors.New("telegram down")}}
	sc := New(st, snd, zap.NewNop(), time.Minute)

	sc.Tick(context.Background(), mondayNoon)

	assert.Empty(t, st.finished, "failed delivery must leave the case unfinished")

	// Transport recovers within the window; the retry succeeds.
	snd.failFor = nil
	sc.Tick(context.Background(), mondayNoon.Add(25*time.Second))
	assert.Equal(t, []int64{1}, snd.sent)
	assert.Equal(t, []int64{1}, st.finished)
}

func TestTick_PerCaseIsolation(t *testing.T) {
	st := &fakeStore{cases: []domain.Case{
		oneShotAt(1, mondayNoon),
		oneShotAt(2, mondayNoon),
		oneShotAt(3, mondayNoon),
	}}
	snd := &fakeSender{failFor: map[int64]error{2: errors.New("blocked by user")}}
	sc := New(st, snd, zap.NewNop(), time.Minute)

	sc.Tick(context.Background(), mondayNoon)

	assert.ElementsMatch(t, []int64{1, 3}, snd.sent)
	assert.ElementsMatch(t, []int64{1, 3}, st.finished)
}

func TestTick_ListErrorAbortsQuietly(t *testing.T) {
	st := &fakeStore{listErr: errors.New("db locked")}
	snd := &fakeSender{}
	sc := New(st, snd, zap.NewNop(), time.Minute)

	sc.Tick(context.Background(), mondayNoon)
	assert.Empty(t, snd.sent)
}
