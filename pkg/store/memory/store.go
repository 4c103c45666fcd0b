// Package memory is a process-local backend.Store. Data is lost on exit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/flowlist/pkg/backend"
)

type seqTask struct {
	seq int64
	backend.Task
}

type seqHabit struct {
	seq int64
	backend.Habit
	logs []backend.HabitLog
}

type seqTx struct {
	seq int64
	backend.Transaction
}

type userData struct {
	tasks        map[string]*seqTask
	habits       map[string]*seqHabit
	transactions []seqTx
	accounts     []*backend.Account
	assets       []backend.Asset
	liabilities  []backend.Liability
	goals        []*backend.SavingsGoal
}

// Store keeps every user's records in maps guarded by one mutex.
type Store struct {
	mu    sync.Mutex
	users map[string]*userData
	seq   int64
	now   func() time.Time
}

var _ backend.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]*userData), now: time.Now}
}

func (s *Store) Close() error { return nil }

func (s *Store) user(userID string) *userData {
	u, ok := s.users[userID]
	if !ok {
		u = &userData{
			tasks:  make(map[string]*seqTask),
			habits: make(map[string]*seqHabit),
		}
		s.users[userID] = u
	}
	return u
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func (s *Store) CreateTask(ctx context.Context, userID string, in backend.NewTask) (backend.Task, error) {
	if err := ctx.Err(); err != nil {
		return backend.Task{}, err
	}
	in, err := in.Normalize()
	if err != nil {
		return backend.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	t := backend.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Duration:    in.Duration,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.user(userID).tasks[t.ID] = &seqTask{seq: s.next(), Task: t}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, userID string) ([]backend.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]*seqTask, 0)
	for _, t := range s.user(userID).tasks {
		rows = append(rows, t)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := make([]backend.Task, len(rows))
	for i, r := range rows {
		out[i] = r.Task
	}
	return out, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, userID, taskID string, status backend.TaskStatus) (backend.Task, error) {
	if err := ctx.Err(); err != nil {
		return backend.Task{}, err
	}
	if !status.Valid() {
		return backend.Task{}, &backend.ValidationError{Field: "status", Message: "is not a known status"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.user(userID).tasks[taskID]
	if !ok {
		return backend.Task{}, backend.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = s.now()
	return t.Task, nil
}

func (s *Store) DeleteTask(ctx context.Context, userID, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if _, ok := u.tasks[taskID]; !ok {
		return backend.ErrNotFound
	}
	delete(u.tasks, taskID)
	return nil
}

func (s *Store) CreateHabit(ctx context.Context, userID string, in backend.NewHabit) (backend.Habit, error) {
	if err := ctx.Err(); err != nil {
		return backend.Habit{}, err
	}
	in, err := in.Normalize()
	if err != nil {
		return backend.Habit{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := backend.Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     in.Title,
		Frequency: in.Frequency,
		CreatedAt: s.now(),
	}
	s.user(userID).habits[h.ID] = &seqHabit{seq: s.next(), Habit: h}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID string) ([]backend.Habit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]*seqHabit, 0)
	for _, h := range s.user(userID).habits {
		rows = append(rows, h)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := make([]backend.Habit, len(rows))
	for i, r := range rows {
		out[i] = r.Habit
	}
	return out, nil
}

func (s *Store) CompleteHabitToday(ctx context.Context, userID, habitID string, now time.Time) (backend.Habit, error) {
	if err := ctx.Err(); err != nil {
		return backend.Habit{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.user(userID).habits[habitID]
	if !ok {
		return backend.Habit{}, backend.ErrNotFound
	}
	if backend.CompletedSince(h.logs, backend.StartOfDay(now)) {
		return backend.Habit{}, backend.ErrAlreadyCompleted
	}
	h.logs = append(h.logs, backend.HabitLog{ID: uuid.NewString(), HabitID: habitID, CompletedAt: now})
	h.Habit = backend.ApplyCompletion(h.Habit, now)
	return h.Habit, nil
}

func (s *Store) DeleteHabit(ctx context.Context, userID, habitID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if _, ok := u.habits[habitID]; !ok {
		return backend.ErrNotFound
	}
	delete(u.habits, habitID)
	return nil
}
