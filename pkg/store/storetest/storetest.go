// Package storetest holds behavior checks shared by every backend.Store adapter.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/flowlist/pkg/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) backend.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("tasks", func(t *testing.T) { testTasks(t, newStore(t)) })
	t.Run("habits", func(t *testing.T) { testHabits(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("net worth", func(t *testing.T) { testNetWorth(t, newStore(t)) })
	t.Run("savings goals", func(t *testing.T) { testSavingsGoals(t, newStore(t)) })
	t.Run("user scoping", func(t *testing.T) { testScoping(t, newStore(t)) })
}

func testTasks(t *testing.T, s backend.Store) {
	ctx := context.Background()
	due := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	first, err := s.CreateTask(ctx, "u1", backend.NewTask{Title: "Buy milk", DueDate: &due})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, backend.TaskTodo, first.Status)
	assert.Equal(t, backend.PriorityMedium, first.Priority)
	require.NotNil(t, first.DueDate)
	assert.True(t, first.DueDate.Equal(due))

	second, err := s.CreateTask(ctx, "u1", backend.NewTask{Title: "Ship report", Priority: backend.PriorityHigh})
	require.NoError(t, err)

	list, err := s.ListTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	updated, err := s.UpdateTaskStatus(ctx, "u1", first.ID, backend.TaskCompleted)
	require.NoError(t, err)
	assert.Equal(t, backend.TaskCompleted, updated.Status)

	list, err = s.ListTasks(ctx, "u1")
	require.NoError(t, err)
	pending := backend.Pending(list)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	_, err = s.CreateTask(ctx, "u1", backend.NewTask{})
	assert.True(t, backend.IsValidation(err))

	require.NoError(t, s.DeleteTask(ctx, "u1", first.ID))
	assert.ErrorIs(t, s.DeleteTask(ctx, "u1", first.ID), backend.ErrNotFound)
}

func testHabits(t *testing.T, s backend.Store) {
	ctx := context.Background()
	h, err := s.CreateHabit(ctx, "u1", backend.NewHabit{Title: "Read", Frequency: backend.FrequencyDaily})
	require.NoError(t, err)

	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	h, err = s.CompleteHabitToday(ctx, "u1", h.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 1, h.StreakCurrent)
	assert.Equal(t, 1, h.StreakBest)

	_, err = s.CompleteHabitToday(ctx, "u1", h.ID, day.Add(3*time.Hour))
	assert.ErrorIs(t, err, backend.ErrAlreadyCompleted)

	h, err = s.CompleteHabitToday(ctx, "u1", h.ID, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, h.StreakCurrent)
	assert.Equal(t, 2, h.StreakBest)

	list, err := s.ListHabits(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].StreakCurrent)

	_, err = s.CompleteHabitToday(ctx, "u1", "missing", day)
	assert.ErrorIs(t, err, backend.ErrNotFound)

	require.NoError(t, s.DeleteHabit(ctx, "u1", h.ID))
	list, err = s.ListHabits(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testTransactions(t *testing.T, s backend.Store) {
	ctx := context.Background()
	acc, err := s.AddAccount(ctx, "u1", backend.NewAccount{Name: "Main", Type: backend.AccountChecking, Balance: 100})
	require.NoError(t, err)
	assert.Equal(t, backend.DefaultCurrency, acc.Currency)

	older := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
	_, err = s.AddTransaction(ctx, "u1", backend.NewTransaction{Amount: 500, Type: backend.Income, Category: "salary", AccountID: acc.ID, Date: &older})
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, "u1", backend.NewTransaction{Amount: 380, Type: backend.Expense, Category: "rent", AccountID: acc.ID, Tags: []string{"home"}, Date: &newer})
	require.NoError(t, err)

	list, err := s.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "rent", list[0].Category, "most recent date first")
	assert.Equal(t, []string{"home"}, list[0].Tags)

	status, err := s.BalanceStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, backend.BalanceStatus{Balance: 120, Income: 500, Expenses: 380}, status)

	accounts, err := s.ListAccounts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.InDelta(t, 220, accounts[0].Balance, 0.0001)

	_, err = s.AddTransaction(ctx, "u1", backend.NewTransaction{Amount: 1, Type: backend.Income, Category: "gift", AccountID: "missing"})
	assert.True(t, errors.Is(err, backend.ErrNotFound))
	_, err = s.AddTransaction(ctx, "u1", backend.NewTransaction{Amount: -1, Type: backend.Income, Category: "gift"})
	assert.True(t, backend.IsValidation(err))
}

func testNetWorth(t *testing.T, s backend.Store) {
	ctx := context.Background()
	_, err := s.AddAccount(ctx, "u1", backend.NewAccount{Name: "Savings", Type: backend.AccountSavings, Balance: 300})
	require.NoError(t, err)
	_, err = s.AddAccount(ctx, "u1", backend.NewAccount{Name: "Card", Type: backend.AccountCredit, Balance: -150})
	require.NoError(t, err)
	_, err = s.AddAsset(ctx, "u1", backend.NewAsset{Name: "Car", Type: "VEHICLE", Value: 1000})
	require.NoError(t, err)
	_, err = s.AddLiability(ctx, "u1", backend.NewLiability{Name: "Loan", Type: "LOAN", Amount: 200})
	require.NoError(t, err)

	nw, err := s.NetWorth(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, backend.NetWorth{Assets: 1300, Liabilities: 350, NetWorth: 950}, nw)
}

func testSavingsGoals(t *testing.T, s backend.Store) {
	ctx := context.Background()
	g, err := s.AddSavingsGoal(ctx, "u1", backend.NewSavingsGoal{Name: "Trip", Target: 2000})
	require.NoError(t, err)
	assert.Zero(t, g.Current)

	g, err = s.UpdateSavingsGoal(ctx, "u1", g.ID, 450)
	require.NoError(t, err)
	assert.Equal(t, 450.0, g.Current)

	goals, err := s.ListSavingsGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, 450.0, goals[0].Current)

	_, err = s.UpdateSavingsGoal(ctx, "u2", g.ID, 1)
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func testScoping(t *testing.T, s backend.Store) {
	ctx := context.Background()
	task, err := s.CreateTask(ctx, "u1", backend.NewTask{Title: "Private"})
	require.NoError(t, err)

	list, err := s.ListTasks(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.UpdateTaskStatus(ctx, "u2", task.ID, backend.TaskCompleted)
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTask(ctx, "u2", task.ID), backend.ErrNotFound)
}
