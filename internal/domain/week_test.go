package domain

import (
	"testing"
	"time"
)

func TestWeekOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		t    time.Time
		want WeekKey
	}{
		{
			name: "january first",
			t:    time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC),
			want: WeekKey{Number: 1, Year: 2025},
		},
		{
			name: "early february",
			t:    time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC),
			want: WeekKey{Number: 5, Year: 2025},
		},
		{
			name: "new years eve",
			t:    time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC),
			want: WeekKey{Number: 53, Year: 2025},
		},
		{
			name: "year starting on sunday",
			t:    time.Date(2023, time.January, 1, 8, 0, 0, 0, time.UTC),
			want: WeekKey{Number: 1, Year: 2023},
		},
		{
			// 2028 starts on Saturday and is a leap year, the raw formula
			// overflows to 54 on its last day.
			name: "last day of leap year starting on saturday",
			t:    time.Date(2028, time.December, 31, 10, 0, 0, 0, time.UTC),
			want: WeekKey{Number: 53, Year: 2028},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := WeekOf(tc.t)
			if got != tc.want {
				t.Fatalf("WeekOf(%v) = %+v, want %+v", tc.t, got, tc.want)
			}
			if got.Number < 1 || got.Number > 53 {
				t.Fatalf("week number %d out of range", got.Number)
			}
		})
	}
}

func TestWeekOfStableWithinRun(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.June, 16, 8, 0, 0, 0, time.UTC)
	if WeekOf(at) != WeekOf(at) {
		t.Fatal("week key must be deterministic for a fixed instant")
	}
}
