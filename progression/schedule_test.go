package progression

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTierFor(t *testing.T) {
	s := MustTierSchedule(0, 100, 300, 600)

	for _, tc := range []struct {
		xp   int64
		tier uint32
	}{
		{-5, 0},
		{0, 0},
		{99, 0},
		{100, 1},
		{250, 1},
		{299, 1},
		{300, 2},
		{600, 3},
		{1 << 40, 3},
	} {
		require.Equal(t, tc.tier, s.TierFor(tc.xp), "xp=%d", tc.xp)
	}

	th, ok := s.Threshold(2)
	require.True(t, ok)
	require.Equal(t, int64(300), th)
	_, ok = s.Threshold(4)
	require.False(t, ok)
	require.Equal(t, 4, s.Len())
}

func TestNewTierScheduleValidation(t *testing.T) {
	for _, bad := range [][]int64{
		nil,
		{-1, 10},
		{0, 100, 100},
		{0, 300, 200},
	} {
		_, err := NewTierSchedule(bad)
		require.Error(t, err, "%v", bad)
	}

	in := []int64{0, 10}
	s, err := NewTierSchedule(in)
	require.NoError(t, err)
	in[1] = 5
	require.Equal(t, []int64{0, 10}, s.Thresholds())
}
