package giveaway

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawWinnersDistinct(t *testing.T) {
	participants := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 100; trial++ {
		winners := DrawWinners(participants, 3, rng)
		require.Len(t, winners, 3)

		seen := make(map[int64]bool)
		for _, w := range winners {
			assert.False(t, seen[w], "победитель %d выбран дважды", w)
			seen[w] = true
			assert.Contains(t, participants, w)
		}
	}
}

func TestDrawWinnersFewParticipants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	// Запросили больше, чем участников — побеждают все
	winners := DrawWinners([]int64{10, 20}, 5, rng)
	assert.ElementsMatch(t, []int64{10, 20}, winners)

	winners = DrawWinners([]int64{10, 20, 30}, 3, rng)
	assert.ElementsMatch(t, []int64{10, 20, 30}, winners)
}

func TestDrawWinnersEdgeCases(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	assert.Nil(t, DrawWinners(nil, 3, rng))
	assert.Nil(t, DrawWinners([]int64{1, 2}, 0, rng))
	assert.Nil(t, DrawWinners([]int64{1, 2}, -1, rng))
}

func TestDrawWinnersDoesNotMutateInput(t *testing.T) {
	participants := []int64{1, 2, 3, 4, 5}
	rng := rand.New(rand.NewSource(7))

	DrawWinners(participants, 3, rng)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, participants)
}

func TestDrawWinnersDeterministic(t *testing.T) {
	participants := []int64{1, 2, 3, 4, 5, 6, 7, 8}

	a := DrawWinners(participants, 4, rand.New(rand.NewSource(99)))
	b := DrawWinners(participants, 4, rand.New(rand.NewSource(99)))
	assert.Equal(t, a, b)
}
