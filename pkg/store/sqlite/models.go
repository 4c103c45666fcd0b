package sqlite

import (
	"time"

	"github.com/harunnryd/flowlist/pkg/backend"
	"gorm.io/datatypes"
)

type taskRow struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index;not null"`
	Title       string `gorm:"not null"`
	Description string
	Status      string `gorm:"not null"`
	Priority    string `gorm:"not null"`
	DueDate     *time.Time
	Duration    *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (taskRow) TableName() string { return "tasks" }

func (r taskRow) toTask() backend.Task {
	return backend.Task{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Status:      backend.TaskStatus(r.Status),
		Priority:    backend.Priority(r.Priority),
		DueDate:     r.DueDate,
		Duration:    r.Duration,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type habitRow struct {
	ID              string `gorm:"primaryKey"`
	UserID          string `gorm:"index;not null"`
	Title           string `gorm:"not null"`
	Frequency       string `gorm:"not null"`
	StreakCurrent   int
	StreakBest      int
	LastCompletedAt *time.Time
	CreatedAt       time.Time
}

func (habitRow) TableName() string { return "habits" }

func (r habitRow) toHabit() backend.Habit {
	return backend.Habit{
		ID:              r.ID,
		UserID:          r.UserID,
		Title:           r.Title,
		Frequency:       backend.Frequency(r.Frequency),
		StreakCurrent:   r.StreakCurrent,
		StreakBest:      r.StreakBest,
		LastCompletedAt: r.LastCompletedAt,
		CreatedAt:       r.CreatedAt,
	}
}

type habitLogRow struct {
	ID          string `gorm:"primaryKey"`
	HabitID     string `gorm:"index;not null"`
	CompletedAt time.Time
}

func (habitLogRow) TableName() string { return "habit_logs" }

type transactionRow struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"index;not null"`
	AccountID     string `gorm:"index"`
	Amount        float64
	Type          string `gorm:"not null"`
	Category      string `gorm:"not null"`
	Description   string
	PaymentMethod string
	Tags          datatypes.JSONSlice[string]
	Date          time.Time
	CreatedAt     time.Time
}

func (transactionRow) TableName() string { return "transactions" }

func (r transactionRow) toTransaction() backend.Transaction {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return backend.Transaction{
		ID:            r.ID,
		UserID:        r.UserID,
		AccountID:     r.AccountID,
		Amount:        r.Amount,
		Type:          backend.TransactionType(r.Type),
		Category:      r.Category,
		Description:   r.Description,
		PaymentMethod: r.PaymentMethod,
		Tags:          tags,
		Date:          r.Date,
		CreatedAt:     r.CreatedAt,
	}
}

type accountRow struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	Type      string `gorm:"not null"`
	Balance   float64
	Currency  string
	CreatedAt time.Time
}

func (accountRow) TableName() string { return "financial_accounts" }

func (r accountRow) toAccount() backend.Account {
	return backend.Account{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Type:      backend.AccountType(r.Type),
		Balance:   r.Balance,
		Currency:  r.Currency,
		CreatedAt: r.CreatedAt,
	}
}

type assetRow struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Name      string
	Type      string
	Value     float64
	AccountID string
	CreatedAt time.Time
}

func (assetRow) TableName() string { return "assets" }

type liabilityRow struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Name      string
	Type      string
	Amount    float64
	AccountID string
	DueDate   *time.Time
	CreatedAt time.Time
}

func (liabilityRow) TableName() string { return "liabilities" }

type savingsGoalRow struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	Target    float64
	Current   float64
	Deadline  *time.Time
	CreatedAt time.Time
}

func (savingsGoalRow) TableName() string { return "savings_goals" }

func (r savingsGoalRow) toGoal() backend.SavingsGoal {
	return backend.SavingsGoal{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Target:    r.Target,
		Current:   r.Current,
		Deadline:  r.Deadline,
		CreatedAt: r.CreatedAt,
	}
}

func allModels() []any {
	return []any{
		&taskRow{}, &habitRow{}, &habitLogRow{}, &transactionRow{},
		&accountRow{}, &assetRow{}, &liabilityRow{}, &savingsGoalRow{},
	}
}
