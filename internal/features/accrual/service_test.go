package accrual

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore — потокобезопасная in-memory реализация счётчиков активности.
type fakeStore struct {
	mu       sync.Mutex
	messages map[int64]*MessageCount
	voice    map[int64]*VoiceTime
	invites  map[int64]int64
	boosts   map[int64]*BoostCount
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages: make(map[int64]*MessageCount),
		voice:    make(map[int64]*VoiceTime),
		invites:  make(map[int64]int64),
		boosts:   make(map[int64]*BoostCount),
	}
}

func (f *fakeStore) IncrMessages(_ context.Context, userID int64) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[userID]
	if !ok {
		m = &MessageCount{UserID: userID}
		f.messages[userID] = m
	}
	m.Count++
	return m.Count, m.Rewarded, nil
}

func (f *fakeStore) AdvanceMessagesRewarded(_ context.Context, userID, take int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[userID]
	if !ok || m.Count-m.Rewarded < take {
		return false, nil
	}
	m.Rewarded += take
	return true, nil
}

func (f *fakeStore) AddVoiceMinutes(_ context.Context, userID, minutes int64) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.voice[userID]
	if !ok {
		v = &VoiceTime{UserID: userID}
		f.voice[userID] = v
	}
	v.Minutes += minutes
	return v.Minutes, v.RewardedMinutes, nil
}

func (f *fakeStore) AdvanceVoiceRewarded(_ context.Context, userID, take int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.voice[userID]
	if !ok || v.Minutes-v.RewardedMinutes < take {
		return false, nil
	}
	v.RewardedMinutes += take
	return true, nil
}

func (f *fakeStore) IncrInvites(_ context.Context, userID, by int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites[userID] += by
	return f.invites[userID], nil
}

func (f *fakeStore) ObserveBoosts(_ context.Context, userID, total int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boosts[userID]
	if !ok {
		b = &BoostCount{UserID: userID}
		f.boosts[userID] = b
	}
	if total > b.Count {
		b.Count = total
	}
	if b.Rewarded >= total {
		return 0, nil
	}
	delta := total - b.Rewarded
	b.Rewarded = total
	return delta, nil
}

func (f *fakeStore) GetStats(_ context.Context, userID int64) (*UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &UserStats{}
	if m, ok := f.messages[userID]; ok {
		stats.Messages = *m
	}
	if v, ok := f.voice[userID]; ok {
		stats.Voice = *v
	}
	stats.Invites = InviteCount{UserID: userID, Count: f.invites[userID]}
	if b, ok := f.boosts[userID]; ok {
		stats.Boosts = *b
	}
	return stats, nil
}

// fakeWallet записывает все начисления.
type fakeWallet struct {
	mu      sync.Mutex
	credits []decimal.Decimal
	types   []string
}

func (w *fakeWallet) Credit(_ context.Context, _ int64, amount decimal.Decimal, txType, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.credits = append(w.credits, amount)
	w.types = append(w.types, txType)
	return nil
}

func (w *fakeWallet) total() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	sum := decimal.Zero
	for _, c := range w.credits {
		sum = sum.Add(c)
	}
	return sum
}

func (w *fakeWallet) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.credits)
}

var testRates = Rates{
	Invite:           80,
	MessageBatch:     20,
	MessageThreshold: 100,
	VoiceBatch:       20,
	VoiceThreshold:   60,
	Boost:            1000,
}

func TestRecordMessagePaysPerBatch(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	wallet := &fakeWallet{}
	svc := NewService(store, wallet, testRates, nil)

	for i := 0; i < 250; i++ {
		require.NoError(t, svc.RecordMessage(ctx, 7, "@user"))
	}

	// 250 сообщений = 2 полные порции по 100
	assert.Equal(t, 2, wallet.count())
	assert.True(t, wallet.total().Equal(decimal.NewFromInt(40)))

	stats, err := svc.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(250), stats.Messages.Count)
	assert.Equal(t, int64(200), stats.Messages.Rewarded)
	// Отметка выплат всегда кратна порогу
	assert.Zero(t, stats.Messages.Rewarded%testRates.MessageThreshold)
}

func TestRecordMessageConcurrent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	wallet := &fakeWallet{}
	svc := NewService(store, wallet, testRates, nil)

	var wg sync.WaitGroup
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.RecordMessage(ctx, 7, "@user")
		}()
	}
	wg.Wait()

	// Ровно 3 порции, как бы ни чередовались горутины
	assert.Equal(t, 3, wallet.count())
	stats, _ := svc.Stats(ctx, 7)
	assert.Equal(t, int64(300), stats.Messages.Count)
	assert.Equal(t, int64(300), stats.Messages.Rewarded)
}

func TestRecordVoiceMinutes(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	wallet := &fakeWallet{}
	svc := NewService(store, wallet, testRates, nil)

	// 130 минут = 2 полных часа, 10 минут остаются на потом
	require.NoError(t, svc.RecordVoiceMinutes(ctx, 7, "@user", 130))
	assert.Equal(t, 2, wallet.count())

	// Добившиеся 50 минут закрывают третий час
	require.NoError(t, svc.RecordVoiceMinutes(ctx, 7, "@user", 50))
	assert.Equal(t, 3, wallet.count())

	stats, _ := svc.Stats(ctx, 7)
	assert.Equal(t, int64(180), stats.Voice.Minutes)
	assert.Equal(t, int64(180), stats.Voice.RewardedMinutes)
}

func TestRecordInviteOncePerInvitee(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	wallet := &fakeWallet{}
	svc := NewService(store, wallet, testRates, nil)

	require.NoError(t, svc.RecordInvite(ctx, 1, 100, "@inviter"))
	// Перевход того же участника не оплачивается повторно
	require.NoError(t, svc.RecordInvite(ctx, 1, 100, "@inviter"))
	// Самоприглашение игнорируется
	require.NoError(t, svc.RecordInvite(ctx, 1, 1, "@inviter"))

	assert.Equal(t, 1, wallet.count())
	assert.True(t, wallet.total().Equal(decimal.NewFromInt(80)))
}

func TestRecordBoostsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	wallet := &fakeWallet{}
	svc := NewService(store, wallet, testRates, nil)

	// Два буста — платим за оба
	require.NoError(t, svc.RecordBoosts(ctx, 7, 2, "@user"))
	assert.True(t, wallet.total().Equal(decimal.NewFromInt(2000)))

	// Повторная доставка того же суммарного значения — ничего не платим
	require.NoError(t, svc.RecordBoosts(ctx, 7, 2, "@user"))
	assert.True(t, wallet.total().Equal(decimal.NewFromInt(2000)))

	// Третий буст — платим только за прирост
	require.NoError(t, svc.RecordBoosts(ctx, 7, 3, "@user"))
	assert.True(t, wallet.total().Equal(decimal.NewFromInt(3000)))
}

func TestRecordBoostsConcurrentSameTotal(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	wallet := &fakeWallet{}
	svc := NewService(store, wallet, testRates, nil)

	// Telegram может доставить одно событие буста несколько раз подряд,
	// и бот обрабатывает апдейты параллельно. Отметка оплаченных сдвигается
	// под блокировкой строки, поэтому прирост оплачивается ровно один раз.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.RecordBoosts(ctx, 7, 2, "@user")
		}()
	}
	wg.Wait()

	assert.True(t, wallet.total().Equal(decimal.NewFromInt(2000)),
		"за два буста платим 2000 ровно один раз, получили %s", wallet.total())

	stats, err := svc.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Boosts.Count)
	assert.Equal(t, int64(2), stats.Boosts.Rewarded)
}
