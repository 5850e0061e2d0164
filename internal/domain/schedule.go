package domain

// BatchCount is the number of batches a round is split into for n participants.
func BatchCount(n int) uint32 {
	if n > SplitThreshold {
		return 2
	}
	return 1
}

// RoundBudget is the compute one agent may spend in a single invocation when
// total is shared by the participants of one batch. Zero participants yield zero.
func RoundBudget(total uint64, n int) uint64 {
	if n <= 0 {
		return 0
	}
	return SaturatingMul(total, uint64(BatchCount(n))) / uint64(n)
}

// GameBudget is the lifetime compute allowance of one agent. Only a quarter of
// the rounds are funded.
func GameBudget(roundBudget uint64, rounds uint32) uint64 {
	return SaturatingMul(roundBudget, uint64(rounds/4))
}

// ActiveBatch selects which batch plays in the given round.
func ActiveBatch(round, batches uint32) uint32 {
	if batches == 0 {
		return 0
	}
	return round % batches
}

// InBatch reports whether the participant at idx plays in the given round.
func InBatch(idx int, round, batches uint32) bool {
	if batches == 0 {
		return false
	}
	return uint32(idx)%batches == ActiveBatch(round, batches)
}
