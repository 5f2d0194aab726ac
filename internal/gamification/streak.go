package gamification

import (
	"sort"
	"time"
)

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Streaks counts runs of consecutive UTC days with activity. The current
// streak is still alive if the last active day is today or yesterday.
func Streaks(days []time.Time, now time.Time) (current, longest int) {
	if len(days) == 0 {
		return 0, 0
	}

	seen := make(map[time.Time]bool, len(days))
	var uniq []time.Time
	for _, d := range days {
		d = utcDay(d)
		if !seen[d] {
			seen[d] = true
			uniq = append(uniq, d)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].After(uniq[j]) })

	run := 1
	longest = 1
	for i := 1; i < len(uniq); i++ {
		if uniq[i-1].Sub(uniq[i]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	today := utcDay(now)
	if gap := today.Sub(uniq[0]); gap > 24*time.Hour {
		return 0, longest
	}
	current = 1
	for i := 1; i < len(uniq) && uniq[i-1].Sub(uniq[i]) == 24*time.Hour; i++ {
		current++
	}
	return current, longest
}
