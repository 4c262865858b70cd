package market

import (
	"testing"
	"time"
)

func TestSessionDate(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "regular open in UTC",
			in:   time.Date(2023, 3, 15, 13, 30, 0, 0, time.UTC),
			want: time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "after midnight UTC is still the previous ET day",
			in:   time.Date(2023, 3, 16, 2, 0, 0, 0, time.UTC),
			want: time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SessionDate(tt.in); !got.Equal(tt.want) || got.Location() != time.UTC {
				t.Errorf("SessionDate(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsTradingDay(t *testing.T) {
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 18, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		day  time.Time
		want bool
	}{
		{at(2023, 1, 3), true},    // Tuesday
		{at(2023, 1, 7), false},   // Saturday
		{at(2023, 1, 8), false},   // Sunday
		{at(2023, 1, 2), false},   // New Year observed
		{at(2024, 11, 28), false}, // Thanksgiving
		{at(2026, 7, 3), false},   // Independence Day observed
		{at(2026, 7, 6), true},
	}

	for _, tt := range tests {
		if got := IsTradingDay(tt.day); got != tt.want {
			t.Errorf("IsTradingDay(%s) = %v, want %v", tt.day.Format("2006-01-02 Mon"), got, tt.want)
		}
	}
}
