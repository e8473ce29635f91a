package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:00", 480, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"9am", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatClockRoundTrip(t *testing.T) {
	for _, value := range []string{"00:00", "08:05", "13:45", "23:59"} {
		minutes, err := ParseClock(value)
		require.NoError(t, err)
		assert.Equal(t, value, FormatClock(minutes))
	}
}

func TestOverlaps(t *testing.T) {
	// 09:00-11:00 against various intervals.
	start, end := 540, 660

	assert.True(t, Overlaps(start, end, 600, 720), "partial overlap")
	assert.True(t, Overlaps(start, end, 480, 600), "overlap from the left")
	assert.True(t, Overlaps(start, end, 570, 630), "contained")
	assert.True(t, Overlaps(start, end, 480, 720), "containing")
	assert.True(t, Overlaps(start, end, start, end), "identical")

	assert.False(t, Overlaps(start, end, 660, 720), "touching at end")
	assert.False(t, Overlaps(start, end, 480, 540), "touching at start")
	assert.False(t, Overlaps(start, end, 720, 780), "disjoint")
}

func TestOverlapsIsSymmetric(t *testing.T) {
	intervals := [][2]int{{540, 660}, {600, 720}, {660, 720}, {480, 540}, {570, 630}}
	for _, a := range intervals {
		for _, b := range intervals {
			assert.Equal(t,
				Overlaps(a[0], a[1], b[0], b[1]),
				Overlaps(b[0], b[1], a[0], a[1]),
				"overlap must not depend on argument order")
		}
	}
}
