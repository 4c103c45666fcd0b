package backend

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskDefaults(t *testing.T) {
	got, err := NewTask{Title: "  Buy milk "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, TaskTodo, got.Status)
	assert.Equal(t, PriorityMedium, got.Priority)
}

func TestNewTaskValidation(t *testing.T) {
	cases := []struct {
		name  string
		in    NewTask
		field string
	}{
		{"empty title", NewTask{Title: " "}, "title"},
		{"bad status", NewTask{Title: "x", Status: "DONE"}, "status"},
		{"bad priority", NewTask{Title: "x", Priority: "CRITICAL"}, "priority"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.in.Normalize()
			var v *ValidationError
			require.True(t, errors.As(err, &v))
			assert.Equal(t, tc.field, v.Field)
		})
	}
}

func TestPendingKeepsTodoOnly(t *testing.T) {
	tasks := []Task{{ID: "1", Status: TaskTodo}, {ID: "2", Status: TaskCompleted}, {ID: "3", Status: TaskInProgress}, {ID: "4", Status: TaskTodo}}
	got := Pending(tasks)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "4", got[1].ID)
}

func TestHabitCompletion(t *testing.T) {
	now := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	h := ApplyCompletion(Habit{StreakCurrent: 2, StreakBest: 5}, now)
	assert.Equal(t, 3, h.StreakCurrent)
	assert.Equal(t, 5, h.StreakBest)

	h = ApplyCompletion(Habit{StreakCurrent: 5, StreakBest: 5}, now)
	assert.Equal(t, 6, h.StreakBest)

	logs := []HabitLog{{CompletedAt: now.Add(-16 * time.Hour)}}
	assert.False(t, CompletedSince(logs, StartOfDay(now)))
	logs = append(logs, HabitLog{CompletedAt: StartOfDay(now)})
	assert.True(t, CompletedSince(logs, StartOfDay(now)))
}

func TestNewHabitRequiresFrequency(t *testing.T) {
	_, err := NewHabit{Title: "Run"}.Normalize()
	assert.True(t, IsValidation(err))
	_, err = NewHabit{Title: "Run", Frequency: FrequencyWeekly}.Normalize()
	assert.NoError(t, err)
}

func TestComputeBalance(t *testing.T) {
	got := ComputeBalance([]Transaction{
		{Type: Income, Amount: 500},
		{Type: Expense, Amount: 300},
		{Type: Expense, Amount: 80},
	})
	assert.Equal(t, BalanceStatus{Balance: 120, Income: 500, Expenses: 380}, got)
	assert.Equal(t, BalanceStatus{}, ComputeBalance(nil))
}

func TestComputeNetWorth(t *testing.T) {
	got := ComputeNetWorth(
		[]Asset{{Value: 1000}},
		[]Liability{{Amount: 200}},
		[]Account{{Type: AccountChecking, Balance: 300}, {Type: AccountCredit, Balance: -150}},
	)
	assert.Equal(t, NetWorth{Assets: 1300, Liabilities: 350, NetWorth: 950}, got)
}

func TestTransactionAndAccountNormalize(t *testing.T) {
	_, err := NewTransaction{Amount: 0, Type: Income, Category: "salary"}.Normalize()
	assert.True(t, IsValidation(err))
	tx, err := NewTransaction{Amount: 10, Type: Expense, Category: " food "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "food", tx.Category)
	assert.NotNil(t, tx.Tags)

	acc, err := NewAccount{Name: "Main", Type: AccountChecking}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, acc.Currency)

	assert.Equal(t, -5.0, BalanceAdjustment(Expense, 5))
	assert.Equal(t, 5.0, BalanceAdjustment(Income, 5))

	_, err = NewSavingsGoal{Name: "Trip", Target: -1}.Normalize()
	assert.True(t, IsValidation(err))
}
