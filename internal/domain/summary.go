package domain

import "time"

// Summary is the dashboard overview of a board.
type Summary struct {
	Counts   map[State]int `json:"counts"`
	Total    int           `json:"total"`
	Urgent   int           `json:"urgent"`
	Deadline string        `json:"deadline,omitempty"`
	Greeting string        `json:"greeting"`
}

// Summarize counts todos per column and finds the nearest due date among
// urgent (high priority, not done) todos. Todos outside the board columns
// are not shown anywhere and are skipped.
func Summarize(todos []Todo, now time.Time) Summary {
	s := Summary{Counts: make(map[State]int, len(States)), Greeting: Greeting(now)}
	for _, st := range States {
		s.Counts[st] = 0
	}

	var nearest time.Time
	for _, t := range todos {
		if _, ok := s.Counts[t.State]; !ok {
			continue
		}
		s.Counts[t.State]++
		s.Total++
		if t.Priority != PriorityHigh || t.State == StateDone {
			continue
		}
		s.Urgent++
		due, err := t.Due()
		if err != nil || due.IsZero() {
			continue
		}
		if nearest.IsZero() || due.Before(nearest) {
			nearest = due
		}
	}
	if !nearest.IsZero() {
		s.Deadline = nearest.Format(DateLayout)
	}
	return s
}

// Greeting depends on the local hour of now.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
