package domain

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	todos := []Todo{
		{ID: "1", State: StateTodo, Priority: PriorityHigh, DueDate: "2024-06-10"},
		{ID: "2", State: StateProgress, Priority: PriorityHigh, DueDate: "2024-06-01"},
		{ID: "3", State: StateDone, Priority: PriorityHigh, DueDate: "2024-01-01"},
		{ID: "4", State: StateFeedback, Priority: PriorityLow},
	}
	s := Summarize(todos, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	if s.Total != 4 || s.Urgent != 2 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if s.Counts[StateDone] != 1 || s.Counts[StateTodo] != 1 || s.Counts[StateProgress] != 1 || s.Counts[StateFeedback] != 1 {
		t.Fatalf("unexpected counts %v", s.Counts)
	}
	if s.Deadline != "2024-06-01" {
		t.Fatalf("done todos must not count as urgent deadline, got %q", s.Deadline)
	}
	if s.Greeting != "Good morning" {
		t.Fatalf("unexpected greeting %q", s.Greeting)
	}
}

func TestSummarizeEmptyBoard(t *testing.T) {
	s := Summarize(nil, time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC))
	if s.Total != 0 || s.Deadline != "" || len(s.Counts) != len(States) {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Greeting != "Good evening" {
		t.Fatalf("unexpected greeting %q", s.Greeting)
	}
}

func TestSummarizeSkipsUnknownColumns(t *testing.T) {
	todos := []Todo{
		{ID: "1", State: StateTodo},
		{ID: "2", State: "archive", Priority: PriorityHigh, DueDate: "2024-05-02"},
		{ID: "3", State: ""},
	}
	s := Summarize(todos, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	if s.Total != 1 || s.Urgent != 0 || s.Deadline != "" {
		t.Fatalf("unknown columns must not be counted: %+v", s)
	}
	if len(s.Counts) != len(States) {
		t.Fatalf("unexpected count keys %v", s.Counts)
	}
}
