package timeparsing

import (
	"testing"
	"time"
)

// Wednesday, January 15, 2025, 10:00 local.
var refNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

func TestParseNaturalLanguage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantDate string
		wantHour int // -1 means don't check hour
		wantErr  bool
	}{
		{name: "tomorrow", input: "tomorrow", wantDate: "2025-01-16", wantHour: -1},
		{name: "yesterday", input: "yesterday", wantDate: "2025-01-14", wantHour: -1},
		{name: "next monday", input: "next monday", wantDate: "2025-01-20", wantHour: -1},
		{name: "tomorrow at 9am", input: "tomorrow at 9am", wantDate: "2025-01-16", wantHour: 9},
		{name: "in 3 days", input: "in 3 days", wantDate: "2025-01-18", wantHour: -1},
		{name: "in 1 week", input: "in 1 week", wantDate: "2025-01-22", wantHour: -1},
		{name: "3 days ago", input: "3 days ago", wantDate: "2025-01-12", wantHour: -1},
		{name: "random text", input: "not-a-date", wantErr: true},
		{name: "empty string", input: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNaturalLanguage(tt.input, refNow)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNaturalLanguage(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if d := got.Format("2006-01-02"); d != tt.wantDate {
				t.Errorf("ParseNaturalLanguage(%q) = %s, want %s", tt.input, d, tt.wantDate)
			}
			if tt.wantHour >= 0 && got.Hour() != tt.wantHour {
				t.Errorf("ParseNaturalLanguage(%q) hour = %d, want %d", tt.input, got.Hour(), tt.wantHour)
			}
		})
	}
}

func TestParseRelativeTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "compact +1d keeps the clock", input: "+1d", want: refNow.AddDate(0, 0, 1)},
		{name: "compact +6h", input: "+6h", want: refNow.Add(6 * time.Hour)},
		{name: "date-only is local midnight", input: "2025-02-01", want: time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local)},
		{name: "RFC3339", input: "2025-03-15T14:30:00Z", want: time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)},
		{name: "invalid expression", input: "not-a-date", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.input, refNow)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRelativeTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseRelativeTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
