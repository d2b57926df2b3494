package progression

import (
	"sort"

	lperrors "github.com/rony4d/secret-loot-path/errors"
)

// TierSchedule maps experience to a 0-based tier index. Thresholds are
// strictly increasing; tier T is reached at Thresholds[T].
type TierSchedule struct {
	thresholds []int64
}

// NewTierSchedule validates and copies thresholds.
func NewTierSchedule(thresholds []int64) (TierSchedule, error) {
	if len(thresholds) == 0 {
		return TierSchedule{}, lperrors.New(lperrors.CodeInvalidArgument, "empty tier schedule")
	}
	if thresholds[0] < 0 {
		return TierSchedule{}, lperrors.New(lperrors.CodeInvalidArgument, "negative first threshold")
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return TierSchedule{}, lperrors.Newf(lperrors.CodeInvalidArgument, "threshold %d is not above threshold %d", i, i-1)
		}
	}
	return TierSchedule{thresholds: append([]int64(nil), thresholds...)}, nil
}

// MustTierSchedule is NewTierSchedule that panics on invalid input.
func MustTierSchedule(thresholds ...int64) TierSchedule {
	s, err := NewTierSchedule(thresholds)
	if err != nil {
		panic(err)
	}
	return s
}

// TierFor returns the largest tier whose threshold is at most xp. Experience
// below the first threshold maps to tier 0.
func (s TierSchedule) TierFor(xp int64) uint32 {
	n := sort.Search(len(s.thresholds), func(i int) bool { return s.thresholds[i] > xp })
	if n == 0 {
		return 0
	}
	return uint32(n - 1)
}

// Threshold returns the experience needed for tier, and false past the last.
func (s TierSchedule) Threshold(tier uint32) (int64, bool) {
	if int(tier) >= len(s.thresholds) {
		return 0, false
	}
	return s.thresholds[tier], true
}

// Len is the number of thresholds, base tier included.
func (s TierSchedule) Len() int { return len(s.thresholds) }

// Thresholds returns a copy of the thresholds.
func (s TierSchedule) Thresholds() []int64 {
	return append([]int64(nil), s.thresholds...)
}
