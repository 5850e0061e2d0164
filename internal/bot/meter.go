package bot

import (
	"errors"

	"gridclaim/internal/domain"
)

var ErrOutOfCompute = errors.New("compute limit exhausted")

// Meter counts compute against a hard limit. Once the limit is hit the meter
// stays exhausted.
type Meter struct {
	limit uint64
	used  uint64
}

func NewMeter(limit uint64) *Meter {
	return &Meter{limit: limit}
}

// Charge adds cost. Going over the limit pins usage at the limit and fails.
func (m *Meter) Charge(cost uint64) error {
	next := domain.SaturatingAdd(m.used, cost)
	if next > m.limit {
		m.used = m.limit
		return ErrOutOfCompute
	}
	m.used = next
	return nil
}

func (m *Meter) Used() uint64 { return m.used }
func (m *Meter) Left() uint64 { return m.limit - m.used }
