package backend

import (
	"context"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "DAILY"
	FrequencyWeekly Frequency = "WEEKLY"
)

var Frequencies = []Frequency{FrequencyDaily, FrequencyWeekly}

func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

type Habit struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Title           string     `json:"title"`
	Frequency       Frequency  `json:"frequency"`
	StreakCurrent   int        `json:"streakCurrent"`
	StreakBest      int        `json:"streakBest"`
	LastCompletedAt *time.Time `json:"lastCompletedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type NewHabit struct {
	Title     string
	Frequency Frequency
}

func (n NewHabit) Normalize() (NewHabit, error) {
	n.Title = strings.TrimSpace(n.Title)
	if err := requireText("title", n.Title); err != nil {
		return n, err
	}
	if !n.Frequency.Valid() {
		return n, invalid("frequency", "must be DAILY or WEEKLY")
	}
	return n, nil
}

type HabitLog struct {
	ID          string    `json:"id"`
	HabitID     string    `json:"habitId"`
	CompletedAt time.Time `json:"completedAt"`
}

// StartOfDay returns local midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CompletedSince reports whether any log falls at or after since.
func CompletedSince(logs []HabitLog, since time.Time) bool {
	for _, l := range logs {
		if !l.CompletedAt.Before(since) {
			return true
		}
	}
	return false
}

// ApplyCompletion advances the streak counters for a completion at now.
func ApplyCompletion(h Habit, now time.Time) Habit {
	next := h.StreakCurrent + 1
	if next > h.StreakBest {
		h.StreakBest = next
	}
	h.StreakCurrent = next
	h.LastCompletedAt = &now
	return h
}

type HabitService interface {
	CreateHabit(ctx context.Context, userID string, in NewHabit) (Habit, error)
	// ListHabits returns the user's habits, newest first.
	ListHabits(ctx context.Context, userID string) ([]Habit, error)
	// CompleteHabitToday logs a completion at now. It fails with ErrAlreadyCompleted
	// when a log exists since StartOfDay(now).
	CompleteHabitToday(ctx context.Context, userID, habitID string, now time.Time) (Habit, error)
	DeleteHabit(ctx context.Context, userID, habitID string) error
}
