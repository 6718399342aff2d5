package giveaway

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavenly-temple/pounds-bot/internal/common"
)

// fakeGiveawayStore — in-memory хранилище розыгрышей. ClaimEnd защищён
// мьютексом так же атомарно, как UPDATE ... WHERE ended = FALSE в базе.
type fakeGiveawayStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*Giveaway
}

func newFakeGiveawayStore() *fakeGiveawayStore {
	return &fakeGiveawayStore{nextID: 1, rows: make(map[int64]*Giveaway)}
}

func (f *fakeGiveawayStore) Create(_ context.Context, g *Giveaway) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	cp := *g
	cp.ID = id
	cp.CreatedAt = time.Now().UTC()
	f.rows[id] = &cp
	return id, nil
}

func (f *fakeGiveawayStore) Get(_ context.Context, id int64) (*Giveaway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.rows[id]
	if !ok {
		return nil, common.ErrGiveawayNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGiveawayStore) GetByMessage(_ context.Context, messageID int64) (*Giveaway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.rows {
		if g.MessageID == messageID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, common.ErrGiveawayNotFound
}

func (f *fakeGiveawayStore) SetMessage(_ context.Context, id, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.rows[id]; ok {
		g.MessageID = messageID
	}
	return nil
}

func (f *fakeGiveawayStore) Enter(_ context.Context, giveawayID, userID int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.rows[giveawayID]
	if !ok {
		return common.ErrGiveawayNotFound
	}
	if !g.Open(now) {
		return common.ErrEntriesClosed
	}
	if g.HasParticipant(userID) {
		return common.ErrDuplicateEntry
	}
	g.Participants = append(g.Participants, userID)
	return nil
}

func (f *fakeGiveawayStore) ClaimEnd(_ context.Context, id int64, cancelled bool) (*Giveaway, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.rows[id]
	if !ok || g.Ended {
		return nil, false, nil
	}
	g.Ended = true
	g.Cancelled = cancelled
	cp := *g
	return &cp, true, nil
}

func (f *fakeGiveawayStore) SetWinners(_ context.Context, id int64, winners []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.rows[id]; ok {
		g.Winners = winners
	}
	return nil
}

func (f *fakeGiveawayStore) ListOpen(_ context.Context) ([]*Giveaway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var open []*Giveaway
	for _, g := range f.rows {
		if !g.Ended {
			cp := *g
			open = append(open, &cp)
		}
	}
	return open, nil
}

// fakeWallet хранит балансы пользователей.
type fakeWallet struct {
	mu       sync.Mutex
	balances map[int64]decimal.Decimal
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{balances: make(map[int64]decimal.Decimal)}
}

func (w *fakeWallet) Credit(_ context.Context, userID int64, amount decimal.Decimal, _, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[userID] = w.balances[userID].Add(amount)
	return nil
}

func (w *fakeWallet) balance(userID int64) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID]
}

// fakeFund имитирует серверный пул с проверкой достаточности средств.
type fakeFund struct {
	mu      sync.Mutex
	balance decimal.Decimal
}

func (f *fakeFund) Credit(_ context.Context, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = f.balance.Add(amount)
	return nil
}

func (f *fakeFund) Debit(_ context.Context, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance.LessThan(amount) {
		return common.ErrInsufficientPoolFunds
	}
	f.balance = f.balance.Sub(amount)
	return nil
}

func (f *fakeFund) current() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance
}

func newTestService(t *testing.T, poolBalance int64) (*Service, *fakeGiveawayStore, *fakeWallet, *fakeFund) {
	t.Helper()
	repo := newFakeGiveawayStore()
	wallet := newFakeWallet()
	fund := &fakeFund{balance: decimal.NewFromInt(poolBalance)}
	svc := NewService(repo, wallet, fund, nil, rand.New(rand.NewSource(1)))
	t.Cleanup(svc.Shutdown)
	return svc, repo, wallet, fund
}

func TestCreateEscrowsPrize(t *testing.T) {
	ctx := context.Background()
	svc, _, _, fund := newTestService(t, 1000)

	g, err := svc.Create(ctx, 1, decimal.NewFromInt(300), 3, decimal.Zero, time.Hour)
	require.NoError(t, err)
	require.NotZero(t, g.ID)

	// Приз зарезервирован из пула сразу при создании
	assert.True(t, fund.current().Equal(decimal.NewFromInt(700)))
}

func TestCreateInsufficientPool(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, fund := newTestService(t, 100)

	_, err := svc.Create(ctx, 1, decimal.NewFromInt(300), 3, decimal.Zero, time.Hour)
	assert.ErrorIs(t, err, common.ErrInsufficientPoolFunds)

	// Ничего не создано, пул не тронут
	open, _ := repo.ListOpen(ctx)
	assert.Empty(t, open)
	assert.True(t, fund.current().Equal(decimal.NewFromInt(100)))
}

func TestCreateInvalidArgs(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t, 1000)

	_, err := svc.Create(ctx, 1, decimal.Zero, 3, decimal.Zero, time.Hour)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, 1, decimal.NewFromInt(100), 0, decimal.Zero, time.Hour)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, 1, decimal.NewFromInt(100), 3, decimal.NewFromInt(-1), time.Hour)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, 1, decimal.NewFromInt(100), 3, decimal.Zero, 10*time.Second)
	assert.ErrorIs(t, err, common.ErrInvalidDuration)

	_, err = svc.Create(ctx, 1, decimal.NewFromInt(100), 3, decimal.Zero, 40*24*time.Hour)
	assert.ErrorIs(t, err, common.ErrInvalidDuration)
}

func TestEnterDuplicateAndClosed(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t, 1000)

	g, err := svc.Create(ctx, 1, decimal.NewFromInt(100), 1, decimal.Zero, time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.Enter(ctx, g.ID, 10, "@user"))
	assert.ErrorIs(t, svc.Enter(ctx, g.ID, 10, "@user"), common.ErrDuplicateEntry)

	_, err = svc.Resolve(ctx, g.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Enter(ctx, g.ID, 11, "@other"), common.ErrEntriesClosed)
}

func TestResolveSplitsPrize(t *testing.T) {
	ctx := context.Background()
	svc, _, wallet, fund := newTestService(t, 1000)

	// Победителей запросили 5, участников пришло 3
	g, err := svc.Create(ctx, 1, decimal.NewFromInt(100), 5, decimal.Zero, time.Hour)
	require.NoError(t, err)
	for _, uid := range []int64{10, 11, 12} {
		require.NoError(t, svc.Enter(ctx, g.ID, uid, "@user"))
	}

	res, err := svc.Resolve(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, res.Winners, 3)
	assert.True(t, res.Share.Equal(decimal.NewFromInt(33)))

	// Каждый победитель получил свою долю ровно один раз
	seen := make(map[int64]bool)
	for _, w := range res.Winners {
		assert.False(t, seen[w])
		seen[w] = true
		assert.True(t, wallet.balance(w).Equal(decimal.NewFromInt(33)))
	}

	// Неделимый остаток 1 вернулся в пул: 900 + 1
	assert.True(t, fund.current().Equal(decimal.NewFromInt(901)))
}

func TestResolveNoParticipants(t *testing.T) {
	ctx := context.Background()
	svc, _, _, fund := newTestService(t, 1000)

	g, err := svc.Create(ctx, 1, decimal.NewFromInt(250), 3, decimal.Zero, time.Hour)
	require.NoError(t, err)

	res, err := svc.Resolve(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Winners)

	// Весь приз вернулся в пул
	assert.True(t, fund.current().Equal(decimal.NewFromInt(1000)))
}

func TestResolveIsTerminal(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t, 1000)

	g, err := svc.Create(ctx, 1, decimal.NewFromInt(100), 1, decimal.Zero, time.Hour)
	require.NoError(t, err)
	require.NoError(t, svc.Enter(ctx, g.ID, 10, "@user"))

	_, err = svc.Resolve(ctx, g.ID)
	require.NoError(t, err)

	// Повторные попытки завершения ничего не двигают
	_, err = svc.Resolve(ctx, g.ID)
	assert.ErrorIs(t, err, common.ErrGiveawayNotFound)
	_, err = svc.Cancel(ctx, g.ID, "поздно")
	assert.ErrorIs(t, err, common.ErrGiveawayNotFound)
}

func TestCancelRefunds(t *testing.T) {
	ctx := context.Background()
	svc, _, wallet, fund := newTestService(t, 1000)

	entryCost := decimal.NewFromInt(5)
	g, err := svc.Create(ctx, 1, decimal.NewFromInt(200), 2, entryCost, time.Hour)
	require.NoError(t, err)
	for _, uid := range []int64{10, 11, 12} {
		require.NoError(t, svc.Enter(ctx, g.ID, uid, "@user"))
	}

	res, err := svc.Cancel(ctx, g.ID, "сообщение удалено")
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, "сообщение удалено", res.Reason)

	// Каждый участник получил взнос обратно
	for _, uid := range []int64{10, 11, 12} {
		assert.True(t, wallet.balance(uid).Equal(entryCost), "участник %d", uid)
	}

	// Приз вернулся в пул, возвраты взносов покрыты из пула:
	// 800 + 200 (приз) - 3*5 (возвраты) = 985
	assert.True(t, fund.current().Equal(decimal.NewFromInt(985)))
}

func TestResolveCancelRace(t *testing.T) {
	ctx := context.Background()
	svc, _, _, fund := newTestService(t, 1000)

	g, err := svc.Create(ctx, 1, decimal.NewFromInt(100), 1, decimal.Zero, time.Hour)
	require.NoError(t, err)
	require.NoError(t, svc.Enter(ctx, g.ID, 10, "@user"))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Resolve(ctx, g.ID)
		results <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.Cancel(ctx, g.ID, "гонка")
		results <- err
	}()
	wg.Wait()
	close(results)

	// Ровно один переход побеждает
	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, common.ErrGiveawayNotFound)
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	// Деньги не потерялись и не удвоились: из пула ушло не больше приза
	assert.True(t, fund.current().GreaterThanOrEqual(decimal.NewFromInt(900)))
	assert.True(t, fund.current().LessThanOrEqual(decimal.NewFromInt(1000)))
}

func TestCancelByMessage(t *testing.T) {
	ctx := context.Background()
	svc, _, _, fund := newTestService(t, 1000)

	g, err := svc.Create(ctx, 1, decimal.NewFromInt(100), 1, decimal.Zero, time.Hour)
	require.NoError(t, err)
	require.NoError(t, svc.AttachMessage(ctx, g.ID, 555))

	res, err := svc.CancelByMessage(ctx, 555, "сообщение удалено")
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.True(t, fund.current().Equal(decimal.NewFromInt(1000)))

	_, err = svc.CancelByMessage(ctx, 777, "нет такого")
	assert.ErrorIs(t, err, common.ErrGiveawayNotFound)
}
