// Package tools declares the backend actions the assistant may invoke and
// executes model-issued calls against them.
package tools

// Name identifies a tool. The set is closed; ParseName rejects anything else.
type Name string

const (
	CreateTask      Name = "create_task"
	GetPendingTasks Name = "get_pending_tasks"

	CreateHabit   Name = "create_habit"
	CompleteHabit Name = "complete_habit"
	ListHabits    Name = "list_habits"

	AddTransaction     Name = "add_transaction"
	GetFinancialStatus Name = "get_financial_status"
	ListTransactions   Name = "list_transactions"
	AddAccount         Name = "add_account"
	ListAccounts       Name = "list_accounts"
	GetNetWorth        Name = "get_net_worth"
	AddSavingsGoal     Name = "add_savings_goal"
	ListSavingsGoals   Name = "list_savings_goals"
	UpdateSavingsGoal  Name = "update_savings_goal"
)

// ParseName maps a wire name to a known Name.
func ParseName(s string) (Name, bool) {
	switch n := Name(s); n {
	case CreateTask, GetPendingTasks,
		CreateHabit, CompleteHabit, ListHabits,
		AddTransaction, GetFinancialStatus, ListTransactions,
		AddAccount, ListAccounts, GetNetWorth,
		AddSavingsGoal, ListSavingsGoals, UpdateSavingsGoal:
		return n, true
	}
	return "", false
}

func (n Name) String() string { return string(n) }

type Group string

const (
	GroupTasks   Group = "tasks"
	GroupHabits  Group = "habits"
	GroupFinance Group = "finance"
)

// Groups lists every group in registry order.
var Groups = []Group{GroupTasks, GroupHabits, GroupFinance}

type Preset string

const (
	PresetMinimal  Preset = "minimal"
	PresetExtended Preset = "extended"
	PresetFull     Preset = "full"
)
