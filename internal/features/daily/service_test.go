package daily

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// fakeDailyStore — in-memory состояние ежедневных наград. CommitClaim
// повторяет защищённый UPDATE: второй коммит за тот же день отклоняется.
type fakeDailyStore struct {
	mu     sync.Mutex
	states map[int64]*State
}

func newFakeDailyStore() *fakeDailyStore {
	return &fakeDailyStore{states: make(map[int64]*State)}
}

func (f *fakeDailyStore) GetState(_ context.Context, userID int64) (*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[userID]
	if !ok {
		return &State{}, nil
	}
	cp := *st
	return &cp, nil
}

func (f *fakeDailyStore) CommitClaim(_ context.Context, userID int64, today time.Time, streak int, _ decimal.Decimal) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[userID]
	if !ok {
		st = &State{}
		f.states[userID] = st
	}
	if st.LastDaily != nil && !st.LastDaily.Before(today) {
		return false, nil
	}
	day := today
	st.LastDaily = &day
	st.Streak = streak
	return true, nil
}

func newTestDaily(t *testing.T, at time.Time) (*Service, *fakeDailyStore, *time.Time) {
	t.Helper()
	store := newFakeDailyStore()
	svc := NewService(store, 10, nil)
	current := at
	svc.now = func() time.Time { return current }
	return svc, store, &current
}

func TestClaimDailyFirstTime(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestDaily(t, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC))

	claim, err := svc.ClaimDaily(ctx, 7, "@user")
	require.NoError(t, err)
	assert.Equal(t, 1, claim.Streak)
	// base 10 + серия 1
	assert.True(t, claim.Reward.Equal(decimal.NewFromInt(11)))
}

func TestClaimDailyTwiceSameDay(t *testing.T) {
	ctx := context.Background()
	svc, _, now := newTestDaily(t, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC))

	_, err := svc.ClaimDaily(ctx, 7, "@user")
	require.NoError(t, err)

	// Позже тем же днём — отказ с точным временем до полуночи
	*now = time.Date(2024, 3, 10, 20, 30, 0, 0, time.UTC)
	_, err = svc.ClaimDaily(ctx, 7, "@user")

	var claimed *common.AlreadyClaimedError
	require.True(t, errors.As(err, &claimed))
	assert.Equal(t, 3*time.Hour+30*time.Minute, claimed.RetryAfter)
}

func TestClaimDailyStreakGrows(t *testing.T) {
	ctx := context.Background()
	svc, _, now := newTestDaily(t, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC))

	_, err := svc.ClaimDaily(ctx, 7, "@user")
	require.NoError(t, err)

	// Следующий день — серия растёт
	*now = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	claim, err := svc.ClaimDaily(ctx, 7, "@user")
	require.NoError(t, err)
	assert.Equal(t, 2, claim.Streak)
	assert.True(t, claim.Reward.Equal(decimal.NewFromInt(12)))

	*now = time.Date(2024, 3, 12, 23, 59, 0, 0, time.UTC)
	claim, err = svc.ClaimDaily(ctx, 7, "@user")
	require.NoError(t, err)
	assert.Equal(t, 3, claim.Streak)
}

func TestClaimDailyStreakResets(t *testing.T) {
	ctx := context.Background()
	svc, _, now := newTestDaily(t, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC))

	_, err := svc.ClaimDaily(ctx, 7, "@user")
	require.NoError(t, err)

	// Пропущен день — серия начинается заново
	*now = time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC)
	claim, err := svc.ClaimDaily(ctx, 7, "@user")
	require.NoError(t, err)
	assert.Equal(t, 1, claim.Streak)
	assert.True(t, claim.Reward.Equal(decimal.NewFromInt(11)))
}

func TestClaimDailyCommitRace(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestDaily(t, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC))

	// Имитация гонки: между GetState и CommitClaim кто-то успел первым
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	ok, err := store.CommitClaim(ctx, 7, day, 1, decimal.NewFromInt(11))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.ClaimDaily(ctx, 7, "@user")
	var claimed *common.AlreadyClaimedError
	assert.True(t, errors.As(err, &claimed))
}
