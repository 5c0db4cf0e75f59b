package timeparsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		input   string
		want    Offset
		wantErr bool
	}{
		{input: "+3d", want: Offset{3, 'd'}},
		{input: "-1w", want: Offset{-1, 'w'}},
		{input: "2m", want: Offset{2, 'm'}},
		{input: "+12h", want: Offset{12, 'h'}},
		{input: "1y", want: Offset{1, 'y'}},
		{input: "+0d", want: Offset{0, 'd'}},
		{input: "d", wantErr: true},
		{input: "3", wantErr: true},
		{input: "+3x", wantErr: true},
		{input: "+ 3d", wantErr: true},
		{input: "1234567d", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOffset(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, IsOffset(tt.input))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsOffset(tt.input))
		})
	}
}

func TestOffsetFrom(t *testing.T) {
	// Saturday, last day of May.
	base := time.Date(2025, 5, 31, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		o    Offset
		want time.Time
	}{
		{Offset{6, 'h'}, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{Offset{1, 'w'}, time.Date(2025, 6, 7, 18, 0, 0, 0, time.UTC)},
		{Offset{-2, 'd'}, time.Date(2025, 5, 29, 18, 0, 0, 0, time.UTC)},
		// Go normalizes June 31 to July 1.
		{Offset{1, 'm'}, time.Date(2025, 7, 1, 18, 0, 0, 0, time.UTC)},
		{Offset{1, 'y'}, time.Date(2026, 5, 31, 18, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.o.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.o.From(base))
		})
	}
}

func TestOffsetKeepsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// The night of March 9, 2025 is 23 hours long in New York.
	before := time.Date(2025, 3, 8, 9, 0, 0, 0, ny)
	got := Offset{1, 'd'}.From(before)
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 23*time.Hour, got.Sub(before))
	assert.Equal(t, 24*time.Hour, Offset{24, 'h'}.From(before).Sub(before))
}

func TestParseDueDate(t *testing.T) {
	// Tuesday 23:30 in New York is already Wednesday in UTC.
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := time.Date(2025, 6, 10, 23, 30, 0, 0, ny)

	tests := []struct {
		input   string
		want    string // "" means cleared
		wantErr bool
	}{
		{input: "", want: ""},
		{input: "none", want: ""},
		{input: " None ", want: ""},
		{input: "-", want: ""},
		{input: "today", want: "2025-06-10"},
		{input: "TODAY", want: "2025-06-10"},
		{input: "+1w", want: "2025-06-17"},
		{input: "+2d", want: "2025-06-12"},
		{input: "-1d", want: "2025-06-09"},
		{input: "+1h", want: "2025-06-11"},
		{input: "eom", want: "2025-06-30"},
		{input: "eoy", want: "2025-12-31"},
		{input: "2025-07-01", want: "2025-07-01"},
		{input: "2025-06-11T02:00:00Z", want: "2025-06-10"},
		{input: "tomorrow", want: "2025-06-11"},
		{input: "whenever", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDueDate(tt.input, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, time.UTC, got.Location())
			assert.Equal(t, tt.want, got.Format(time.DateOnly))
			assert.Zero(t, got.Hour())
		})
	}
}

func TestParseDueDateEndOfFebruary(t *testing.T) {
	got, err := ParseDueDate("eom", time.Date(2028, 2, 3, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2028-02-29", got.Format(time.DateOnly))
}
