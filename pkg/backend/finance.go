package backend

import (
	"context"
	"math"
	"strings"
	"time"
)

type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

var TransactionTypes = []TransactionType{Income, Expense}

func (t TransactionType) Valid() bool { return t == Income || t == Expense }

type AccountType string

const (
	AccountChecking   AccountType = "CHECKING"
	AccountSavings    AccountType = "SAVINGS"
	AccountCredit     AccountType = "CREDIT"
	AccountCash       AccountType = "CASH"
	AccountInvestment AccountType = "INVESTMENT"
)

var AccountTypes = []AccountType{AccountChecking, AccountSavings, AccountCredit, AccountCash, AccountInvestment}

func (t AccountType) Valid() bool {
	for _, v := range AccountTypes {
		if v == t {
			return true
		}
	}
	return false
}

const DefaultCurrency = "USD"

type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	AccountID     string          `json:"accountId,omitempty"`
	Amount        float64         `json:"amount"`
	Type          TransactionType `json:"type"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Tags          []string        `json:"tags"`
	Date          time.Time       `json:"date"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type NewTransaction struct {
	Amount        float64
	Type          TransactionType
	Category      string
	Description   string
	PaymentMethod string
	AccountID     string
	Tags          []string
	// Date defaults to the time of insertion.
	Date *time.Time
}

func (n NewTransaction) Normalize() (NewTransaction, error) {
	if !(n.Amount > 0) || math.IsInf(n.Amount, 0) {
		return n, invalid("amount", "must be greater than zero")
	}
	if !n.Type.Valid() {
		return n, invalid("type", "must be INCOME or EXPENSE")
	}
	n.Category = strings.TrimSpace(n.Category)
	if err := requireText("category", n.Category); err != nil {
		return n, err
	}
	n.AccountID = strings.TrimSpace(n.AccountID)
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n, nil
}

// BalanceAdjustment is the signed change a transaction applies to its account.
func BalanceAdjustment(t TransactionType, amount float64) float64 {
	if t == Income {
		return amount
	}
	return -amount
}

type BalanceStatus struct {
	Balance  float64 `json:"balance"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

func ComputeBalance(txs []Transaction) BalanceStatus {
	var s BalanceStatus
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income += t.Amount
		case Expense:
			s.Expenses += t.Amount
		}
	}
	s.Balance = s.Income - s.Expenses
	return s
}

type Account struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	Balance   float64     `json:"balance"`
	Currency  string      `json:"currency"`
	CreatedAt time.Time   `json:"createdAt"`
}

type NewAccount struct {
	Name     string
	Type     AccountType
	Balance  float64
	Currency string
}

func (n NewAccount) Normalize() (NewAccount, error) {
	n.Name = strings.TrimSpace(n.Name)
	if err := requireText("name", n.Name); err != nil {
		return n, err
	}
	if !n.Type.Valid() {
		return n, invalid("type", "must be one of CHECKING, SAVINGS, CREDIT, CASH, INVESTMENT")
	}
	n.Currency = strings.ToUpper(strings.TrimSpace(n.Currency))
	if n.Currency == "" {
		n.Currency = DefaultCurrency
	}
	return n, nil
}

type Asset struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Value     float64   `json:"value"`
	AccountID string    `json:"accountId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type NewAsset struct {
	Name      string
	Type      string
	Value     float64
	AccountID string
}

func (n NewAsset) Normalize() (NewAsset, error) {
	n.Name = strings.TrimSpace(n.Name)
	if err := requireText("name", n.Name); err != nil {
		return n, err
	}
	if err := requireText("type", n.Type); err != nil {
		return n, err
	}
	return n, nil
}

type Liability struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Amount    float64    `json:"amount"`
	AccountID string     `json:"accountId,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type NewLiability struct {
	Name      string
	Type      string
	Amount    float64
	AccountID string
	DueDate   *time.Time
}

func (n NewLiability) Normalize() (NewLiability, error) {
	n.Name = strings.TrimSpace(n.Name)
	if err := requireText("name", n.Name); err != nil {
		return n, err
	}
	if err := requireText("type", n.Type); err != nil {
		return n, err
	}
	return n, nil
}

type NetWorth struct {
	Assets      float64 `json:"assets"`
	Liabilities float64 `json:"liabilities"`
	NetWorth    float64 `json:"netWorth"`
}

// ComputeNetWorth counts non-credit account balances as assets and credit
// balances, by magnitude, as liabilities.
func ComputeNetWorth(assets []Asset, liabilities []Liability, accounts []Account) NetWorth {
	var nw NetWorth
	for _, a := range assets {
		nw.Assets += a.Value
	}
	for _, l := range liabilities {
		nw.Liabilities += l.Amount
	}
	for _, a := range accounts {
		if a.Type == AccountCredit {
			nw.Liabilities += math.Abs(a.Balance)
			continue
		}
		nw.Assets += a.Balance
	}
	nw.NetWorth = nw.Assets - nw.Liabilities
	return nw
}

type SavingsGoal struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Name      string     `json:"name"`
	Target    float64    `json:"target"`
	Current   float64    `json:"current"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type NewSavingsGoal struct {
	Name     string
	Target   float64
	Deadline *time.Time
}

func (n NewSavingsGoal) Normalize() (NewSavingsGoal, error) {
	n.Name = strings.TrimSpace(n.Name)
	if err := requireText("name", n.Name); err != nil {
		return n, err
	}
	if !(n.Target > 0) {
		return n, invalid("target", "must be greater than zero")
	}
	return n, nil
}

type FinanceService interface {
	// AddTransaction stores the transaction and, when it names an account,
	// adjusts that account's balance in the same unit of work.
	AddTransaction(ctx context.Context, userID string, in NewTransaction) (Transaction, error)
	// ListTransactions returns the user's transactions, most recent date first.
	ListTransactions(ctx context.Context, userID string) ([]Transaction, error)
	BalanceStatus(ctx context.Context, userID string) (BalanceStatus, error)
	AddAccount(ctx context.Context, userID string, in NewAccount) (Account, error)
	ListAccounts(ctx context.Context, userID string) ([]Account, error)
	AddAsset(ctx context.Context, userID string, in NewAsset) (Asset, error)
	AddLiability(ctx context.Context, userID string, in NewLiability) (Liability, error)
	NetWorth(ctx context.Context, userID string) (NetWorth, error)
	AddSavingsGoal(ctx context.Context, userID string, in NewSavingsGoal) (SavingsGoal, error)
	ListSavingsGoals(ctx context.Context, userID string) ([]SavingsGoal, error)
	UpdateSavingsGoal(ctx context.Context, userID, goalID string, current float64) (SavingsGoal, error)
}

// Services bundles the backend collaborators the tool executor dispatches to.
type Services struct {
	Tasks   TaskService
	Habits  HabitService
	Finance FinanceService
}

// Store is implemented by adapters that provide every service.
type Store interface {
	TaskService
	HabitService
	FinanceService
	Close() error
}

func FromStore(s Store) Services {
	return Services{Tasks: s, Habits: s, Finance: s}
}
