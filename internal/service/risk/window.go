package risk

import (
	"time"

	"github.com/lifemosaic/negotiator/internal/model"
)

// Window holds a dimension's events split into the current lookback period
// and the equally long period before it.
type Window struct {
	Days     int
	Start    time.Time // first UTC day of the current period
	Current  []model.Event
	Previous []model.Event
}

// dayKey is the UTC calendar day of t.
func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// byDay groups events by UTC calendar day.
func byDay(events []model.Event) map[string][]model.Event {
	out := make(map[string][]model.Event)
	for _, e := range events {
		k := dayKey(e.OccurredAt)
		out[k] = append(out[k], e)
	}
	return out
}

// ofType filters events to the given types.
func ofType(events []model.Event, types ...model.EventType) []model.Event {
	var out []model.Event
	for _, e := range events {
		for _, t := range types {
			if e.EventType == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// minutes is an event's duration: metadata duration_minutes, else amount.
func minutes(e model.Event) float64 {
	if v, ok := e.MetadataFloat("duration_minutes"); ok {
		return v
	}
	if e.Amount != nil {
		return *e.Amount
	}
	return 0
}

// hours is a sleep event's length: metadata hours, else amount.
func hours(e model.Event) (float64, bool) {
	if v, ok := e.MetadataFloat("hours"); ok {
		return v, true
	}
	if e.Amount != nil {
		return *e.Amount, true
	}
	return 0, false
}

// moodScore is a mood event's 1-10 score.
func moodScore(e model.Event) (float64, bool) {
	return e.MetadataFloat("score")
}

// lowMoodDays counts days whose mean mood score is at or below 4. Days with
// no mood logged are not counted either way.
func lowMoodDays(events []model.Event) int {
	var n int
	for _, day := range byDay(ofType(events, model.EventMood)) {
		var sum float64
		var c int
		for _, e := range day {
			if v, ok := moodScore(e); ok {
				sum += v
				c++
			}
		}
		if c > 0 && sum/float64(c) <= 4 {
			n++
		}
	}
	return n
}

func absAmount(e model.Event) float64 {
	if e.Amount == nil {
		return 0
	}
	if *e.Amount < 0 {
		return -*e.Amount
	}
	return *e.Amount
}
