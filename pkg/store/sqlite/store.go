// Package sqlite is a backend.Store on SQLite through gorm. The SQLite engine is
// compiled to WebAssembly and embedded, so no cgo toolchain is needed.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/flowlist/pkg/backend"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDSN = "flowlist.db"

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ backend.Store = (*Store)(nil)

// Open connects to the database at dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := gorm.Open(gormlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// one writer keeps SQLite from returning SQLITE_BUSY under concurrent tool calls
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(allModels()...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return backend.ErrNotFound
	}
	return err
}

func (s *Store) CreateTask(ctx context.Context, userID string, in backend.NewTask) (backend.Task, error) {
	in, err := in.Normalize()
	if err != nil {
		return backend.Task{}, err
	}
	now := s.now()
	row := taskRow{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      string(in.Status),
		Priority:    string(in.Priority),
		DueDate:     in.DueDate,
		Duration:    in.Duration,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return backend.Task{}, err
	}
	return row.toTask(), nil
}

func (s *Store) ListTasks(ctx context.Context, userID string) ([]backend.Task, error) {
	var rows []taskRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("rowid DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]backend.Task, len(rows))
	for i, r := range rows {
		out[i] = r.toTask()
	}
	return out, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, userID, taskID string, status backend.TaskStatus) (backend.Task, error) {
	if !status.Valid() {
		return backend.Task{}, &backend.ValidationError{Field: "status", Message: "is not a known status"}
	}
	var row taskRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", taskID, userID).First(&row).Error; err != nil {
			return notFound(err)
		}
		row.Status = string(status)
		row.UpdatedAt = s.now()
		return tx.Save(&row).Error
	})
	if err != nil {
		return backend.Task{}, err
	}
	return row.toTask(), nil
}

func (s *Store) DeleteTask(ctx context.Context, userID, taskID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", taskID, userID).Delete(&taskRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return backend.ErrNotFound
	}
	return nil
}

func (s *Store) CreateHabit(ctx context.Context, userID string, in backend.NewHabit) (backend.Habit, error) {
	in, err := in.Normalize()
	if err != nil {
		return backend.Habit{}, err
	}
	row := habitRow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     in.Title,
		Frequency: string(in.Frequency),
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return backend.Habit{}, err
	}
	return row.toHabit(), nil
}

func (s *Store) ListHabits(ctx context.Context, userID string) ([]backend.Habit, error) {
	var rows []habitRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("rowid DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]backend.Habit, len(rows))
	for i, r := range rows {
		out[i] = r.toHabit()
	}
	return out, nil
}

func (s *Store) CompleteHabitToday(ctx context.Context, userID, habitID string, now time.Time) (backend.Habit, error) {
	var row habitRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", habitID, userID).First(&row).Error; err != nil {
			return notFound(err)
		}
		var logRows []habitLogRow
		if err := tx.Where("habit_id = ?", habitID).Find(&logRows).Error; err != nil {
			return err
		}
		logs := make([]backend.HabitLog, len(logRows))
		for i, l := range logRows {
			logs[i] = backend.HabitLog{ID: l.ID, HabitID: l.HabitID, CompletedAt: l.CompletedAt}
		}
		if backend.CompletedSince(logs, backend.StartOfDay(now)) {
			return backend.ErrAlreadyCompleted
		}
		if err := tx.Create(&habitLogRow{ID: uuid.NewString(), HabitID: habitID, CompletedAt: now}).Error; err != nil {
			return err
		}
		h := backend.ApplyCompletion(row.toHabit(), now)
		row.StreakCurrent = h.StreakCurrent
		row.StreakBest = h.StreakBest
		row.LastCompletedAt = h.LastCompletedAt
		return tx.Save(&row).Error
	})
	if err != nil {
		return backend.Habit{}, err
	}
	return row.toHabit(), nil
}

func (s *Store) DeleteHabit(ctx context.Context, userID, habitID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", habitID, userID).Delete(&habitRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return backend.ErrNotFound
		}
		return tx.Where("habit_id = ?", habitID).Delete(&habitLogRow{}).Error
	})
}

// sortByDateDesc orders in Go because stored timestamps may carry different offsets.
func sortByDateDesc(txs []backend.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })
}
