package store

import (
	"testing"
	"time"
)

func TestParseWeek(t *testing.T) {
	tests := []struct {
		in      string
		key     string
		start   string
		wantErr bool
	}{
		{in: "2025-W10", key: "2025-W10", start: "2025-03-03"},
		{in: "2025-W01", key: "2025-W01", start: "2024-12-30"},
		{in: "2020-W53", key: "2020-W53", start: "2020-12-28"},
		{in: "2025-03-05", key: "2025-W10", start: "2025-03-03"},
		{in: "2025-03-09", key: "2025-W10", start: "2025-03-03"},
		{in: "2025-03-10", key: "2025-W11", start: "2025-03-10"},
		{in: "2021-01-01", key: "2020-W53", start: "2020-12-28"},
		{in: "2025-W53", wantErr: true},
		{in: "2025-W00", wantErr: true},
		{in: "2025-W1", wantErr: true},
		{in: "2025/03/05", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, err := ParseWeek(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", w)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w.Key() != tt.key {
				t.Errorf("Key() = %q, want %q", w.Key(), tt.key)
			}
			if w.StartDate() != tt.start {
				t.Errorf("StartDate() = %q, want %q", w.StartDate(), tt.start)
			}
		})
	}
}

func TestWeekRoundTrip(t *testing.T) {
	day := time.Date(2023, time.January, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 800; i++ {
		d := day.AddDate(0, 0, i)
		w := WeekOf(d)

		back, err := ParseWeek(w.Key())
		if err != nil {
			t.Fatalf("ParseWeek(%q): %v", w.Key(), err)
		}
		if back != w {
			t.Fatalf("round trip %v -> %q -> %v", d, w.Key(), back)
		}
		if got := WeekOf(w.Monday()); got != w {
			t.Fatalf("Monday of %v is in week %v", w, got)
		}
		if w.Monday().Weekday() != time.Monday {
			t.Fatalf("Monday() of %v is a %v", w, w.Monday().Weekday())
		}
	}
}

func TestStartDate_KeepsLiteralDates(t *testing.T) {
	got, err := StartDate("2025-09-01")
	if err != nil || got != "2025-09-01" {
		t.Errorf("StartDate(date) = %q, %v", got, err)
	}
	got, err = StartDate("2025-W36")
	if err != nil || got != "2025-09-01" {
		t.Errorf("StartDate(week) = %q, %v", got, err)
	}
	if _, err := StartDate("next week"); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestWeekKey(t *testing.T) {
	got, err := WeekKey("2025-03-05")
	if err != nil || got != "2025-W10" {
		t.Errorf("WeekKey = %q, %v", got, err)
	}
}
