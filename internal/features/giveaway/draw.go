package giveaway

import "math/rand"

// DrawWinners выбирает n различных победителей из participants.
// Если участников меньше, чем n, победителями становятся все.
//
// Используется частичный Fisher-Yates: исходный срез не меняется,
// каждый участник попадает в победители не более одного раза.
func DrawWinners(participants []int64, n int, rng *rand.Rand) []int64 {
	if n <= 0 || len(participants) == 0 {
		return nil
	}
	if n > len(participants) {
		n = len(participants)
	}

	pool := make([]int64, len(participants))
	copy(pool, participants)

	winners := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		winners = append(winners, pool[i])
	}
	return winners
}
