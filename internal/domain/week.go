package domain

import "time"

// WeekKey is the (weekNumber, year) pair that scopes both deduplication and
// "latest news" queries. It is computed once per run and threaded through
// every call so a run never straddles a week boundary.
type WeekKey struct {
	Number int `json:"weekNumber"`
	Year   int `json:"year"`
}

// WeekOf derives the week key for the given instant. Week numbering counts
// Sunday-started weeks from January 1st:
//
//	weekNumber = ceil((daysSinceJan1 + weekday(Jan1) + 1) / 7)
//
// clamped to 1..53. The raw formula reaches 54 on the last day of a leap
// year that starts on Saturday; that day folds into week 53 so the number
// always fits the storage range.
func WeekOf(t time.Time) WeekKey {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	days := int(t.Sub(jan1).Hours() / 24)
	week := (days + int(jan1.Weekday()) + 1 + 6) / 7
	if week < 1 {
		week = 1
	}
	if week > 53 {
		week = 53
	}
	return WeekKey{Number: week, Year: t.Year()}
}
