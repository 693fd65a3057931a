package partition

import (
	"fmt"

	"github.com/mentorium/mentorium-api/internal/timeofday"
)

// MinFragmentMinutes is the shortest remainder that stays bookable.
// Shorter remainders are dropped.
const MinFragmentMinutes = 60

// Plan is the pure result of carving a requested range out of a slot
type Plan struct {
	Original  timeofday.Range
	Requested timeofday.Range
	Leading   timeofday.Range
	Trailing  timeofday.Range

	KeepLeading  bool
	KeepTrailing bool

	// DiscardedMinutes is availability lost to fragments below the minimum
	DiscardedMinutes int
}

// NewPlan splits original around requested. Each fragment is kept iff its
// duration is at least minFragment; zero-length fragments are never kept.
func NewPlan(original, requested timeofday.Range, minFragment int) (Plan, error) {
	if requested.Duration() <= 0 {
		return Plan{}, fmt.Errorf("requested range %s is empty", requested)
	}
	if !timeofday.Contains(original, requested) {
		return Plan{}, fmt.Errorf("requested range %s is outside %s", requested, original)
	}
	if minFragment < 1 {
		minFragment = 1
	}

	p := Plan{
		Original:  original,
		Requested: requested,
		Leading:   timeofday.Range{Start: original.Start, End: requested.Start},
		Trailing:  timeofday.Range{Start: requested.End, End: original.End},
	}
	p.KeepLeading = p.Leading.Duration() >= minFragment
	p.KeepTrailing = p.Trailing.Duration() >= minFragment

	if !p.KeepLeading {
		p.DiscardedMinutes += p.Leading.Duration()
	}
	if !p.KeepTrailing {
		p.DiscardedMinutes += p.Trailing.Duration()
	}
	return p, nil
}

// Ranges returns the ranges that will exist after the partition, in order
func (p Plan) Ranges() []timeofday.Range {
	out := make([]timeofday.Range, 0, 3)
	if p.KeepLeading {
		out = append(out, p.Leading)
	}
	out = append(out, p.Requested)
	if p.KeepTrailing {
		out = append(out, p.Trailing)
	}
	return out
}
