package domain

import "testing"

func TestBatchCount(t *testing.T) {
	for n := 0; n <= SplitThreshold; n++ {
		if got := BatchCount(n); got != 1 {
			t.Fatalf("BatchCount(%d) = %d, want 1", n, got)
		}
	}
	for _, n := range []int{SplitThreshold + 1, 50, PlayerLimit} {
		if got := BatchCount(n); got != 2 {
			t.Fatalf("BatchCount(%d) = %d, want 2", n, got)
		}
	}
}

func TestRoundBudget(t *testing.T) {
	tests := []struct {
		name  string
		total uint64
		n     int
		want  uint64
	}{
		{name: "no participants", total: TotalBudget, n: 0, want: 0},
		{name: "single", total: TotalBudget, n: 1, want: TotalBudget},
		{name: "ten", total: TotalBudget, n: 10, want: TotalBudget / 10},
		{name: "split doubles share", total: TotalBudget, n: 40, want: TotalBudget * 2 / 40},
		{name: "floors", total: 10, n: 3, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundBudget(tt.total, tt.n); got != tt.want {
				t.Fatalf("RoundBudget(%d, %d) = %d, want %d", tt.total, tt.n, got, tt.want)
			}
		})
	}
}

func TestGameBudgetFundsQuarterOfRounds(t *testing.T) {
	if got := GameBudget(100, 4); got != 100 {
		t.Fatalf("GameBudget(100, 4) = %d, want 100", got)
	}
	if got := GameBudget(100, 7); got != 100 {
		t.Fatalf("GameBudget(100, 7) = %d, want 100", got)
	}
	if got := GameBudget(100, 3); got != 0 {
		t.Fatalf("GameBudget(100, 3) = %d, want 0", got)
	}
}

func TestActiveBatchCoversEveryParticipant(t *testing.T) {
	for _, n := range []int{1, 5, 30, 31, 64} {
		batches := BatchCount(n)
		for start := uint32(0); start < 5; start++ {
			visits := make([]int, n)
			for round := start; round < start+batches; round++ {
				for idx := 0; idx < n; idx++ {
					if InBatch(idx, round, batches) {
						visits[idx]++
					}
				}
			}
			for idx, v := range visits {
				if v != 1 {
					t.Fatalf("n=%d start=%d: participant %d visited %d times", n, start, idx, v)
				}
			}
		}
	}
}
