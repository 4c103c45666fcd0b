package tools

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/harunnryd/flowlist/pkg/backend"
)

// Definition is one tool declaration. Schema is the parameter contract the
// model sees and the executor validates against.
type Definition struct {
	Name        Name
	Group       Group
	Description string
	Schema      *openapi3.Schema
}

// catalog returns every known definition in declaration order. Each call builds
// fresh schemas so registries never share mutable state.
func catalog() []Definition {
	return []Definition{
		{
			Name:        CreateTask,
			Group:       GroupTasks,
			Description: "Create a new task for the user",
			Schema: object([]string{"title"},
				prop("title", "The title of the task", str()),
				prop("description", "A detailed description", str()),
				prop("priority", "How urgent the task is", enum(backend.Priorities)),
				prop("dueDate", "The due date in YYYY-MM-DD format", str()),
				prop("duration", "Planned effort in minutes", integer()),
			),
		},
		{
			Name:        GetPendingTasks,
			Group:       GroupTasks,
			Description: "Get the current list of pending tasks for the user to help with scheduling",
			Schema:      object(nil),
		},
		{
			Name:        CreateHabit,
			Group:       GroupHabits,
			Description: "Create a new habit to track",
			Schema: object([]string{"title", "frequency"},
				prop("title", "The habit title", str()),
				prop("frequency", "How often the habit repeats", enum(backend.Frequencies)),
			),
		},
		{
			Name:        CompleteHabit,
			Group:       GroupHabits,
			Description: "Mark one of the user's habits as completed today",
			Schema: object([]string{"habitId"},
				prop("habitId", "The id of the habit, as returned by list_habits", str()),
			),
		},
		{
			Name:        ListHabits,
			Group:       GroupHabits,
			Description: "List the user's habits with their current and best streaks",
			Schema:      object(nil),
		},
		{
			Name:        AddTransaction,
			Group:       GroupFinance,
			Description: "Record an income or expense transaction",
			Schema: object([]string{"amount", "type", "category"},
				prop("amount", "Positive amount of money", num()),
				prop("type", "Whether money came in or went out", enum(backend.TransactionTypes)),
				prop("category", "Spending or income category, e.g. groceries or salary", str()),
				prop("description", "Free-text note", str()),
				prop("date", "Transaction date in YYYY-MM-DD format, defaults to today", str()),
				prop("paymentMethod", "How it was paid", str()),
				prop("accountId", "Account whose balance should be adjusted", str()),
				prop("tags", "Labels for the transaction", stringList()),
			),
		},
		{
			Name:        GetFinancialStatus,
			Group:       GroupFinance,
			Description: "Get the user's total income, expenses and resulting balance",
			Schema:      object(nil),
		},
		{
			Name:        ListTransactions,
			Group:       GroupFinance,
			Description: "List the user's recent transactions, newest first",
			Schema: object(nil,
				prop("limit", "Maximum number of transactions to return", integer()),
			),
		},
		{
			Name:        AddAccount,
			Group:       GroupFinance,
			Description: "Add a financial account such as a bank account or credit card",
			Schema: object([]string{"name", "type"},
				prop("name", "Display name of the account", str()),
				prop("type", "Kind of account", enum(backend.AccountTypes)),
				prop("balance", "Current balance", num()),
				prop("currency", "ISO currency code, defaults to USD", str()),
			),
		},
		{
			Name:        ListAccounts,
			Group:       GroupFinance,
			Description: "List the user's financial accounts and balances",
			Schema:      object(nil),
		},
		{
			Name:        GetNetWorth,
			Group:       GroupFinance,
			Description: "Compute the user's net worth from assets, liabilities and account balances",
			Schema:      object(nil),
		},
		{
			Name:        AddSavingsGoal,
			Group:       GroupFinance,
			Description: "Create a savings goal",
			Schema: object([]string{"name", "target"},
				prop("name", "What the user is saving for", str()),
				prop("target", "Target amount", num()),
				prop("deadline", "Deadline in YYYY-MM-DD format", str()),
			),
		},
		{
			Name:        ListSavingsGoals,
			Group:       GroupFinance,
			Description: "List the user's savings goals and progress",
			Schema:      object(nil),
		},
		{
			Name:        UpdateSavingsGoal,
			Group:       GroupFinance,
			Description: "Set the amount saved so far toward a savings goal",
			Schema: object([]string{"goalId", "current"},
				prop("goalId", "The id of the savings goal", str()),
				prop("current", "Amount saved so far", num()),
			),
		},
	}
}

// minimalSet is the task and habit surface of the original assistant.
var minimalSet = []Name{CreateTask, GetPendingTasks, CreateHabit}
