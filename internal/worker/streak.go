package worker

import "time"

const dayLayout = "2006-01-02"

// CurrentStreak counts consecutive completed days ending today or
// yesterday. A habit not yet done today keeps yesterday's run alive;
// a gap of a full day breaks it. days holds completion dates in
// YYYY-MM-DD form, any order, duplicates tolerated.
func CurrentStreak(days []string, today time.Time) int {
	if len(days) == 0 {
		return 0
	}

	done := make(map[string]bool, len(days))
	for _, d := range days {
		done[d] = true
	}

	cursor := today.UTC().Truncate(24 * time.Hour)
	if !done[cursor.Format(dayLayout)] {
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for done[cursor.Format(dayLayout)] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}
