package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2024-03-01", "2024-03-01", true},
		{"2024/03/01", "2024-03-01", true},
		{"2024-3-1", "2024-03-01", true},
		{"01/03/2024", "2024-03-01", true},
		{"1/3/2024", "2024-03-01", true},
		{"2024-03-01 10:15:00", "2024-03-01", true},
		{"2024-03-01T10:15:00Z", "2024-03-01", true},
		{" 2024-03-01 ", "2024-03-01", true},
		{"2024", "", false},
		{"12", "", false},
		{"Casa Maranatha", "", false},
		{"31/02/2024", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)

	got, ok := ParseTimestamp("2024-03-01 10:15:30", loc)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 0, loc).Unix(), got.Unix())

	got, ok = ParseTimestamp("2024-03-01 10:15:30.250", loc)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, time.Duration(got.Nanosecond()))

	got, ok = ParseTimestamp("2024-03-01T13:15:30Z", loc)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 0, loc).Unix(), got.Unix())

	_, ok = ParseTimestamp("ayer a la tarde", loc)
	assert.False(t, ok)

	_, ok = ParseTimestamp("", nil)
	assert.False(t, ok)
}
