package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/flowlist/pkg/backend"
	"github.com/harunnryd/flowlist/pkg/configutil"
)

// ArgumentError means the model sent arguments that do not satisfy the tool's
// contract. It never comes from the backend.
type ArgumentError struct {
	Tool   Name
	Detail string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: malformed arguments: %s", e.Tool, e.Detail)
}

type validator interface {
	Validate() error
}

// parseArguments turns the raw JSON text into a generic object and checks it
// against the schema. An empty string is treated as {}.
func parseArguments(def Definition, raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, &ArgumentError{Tool: def.Name, Detail: "invalid JSON: " + err.Error()}
		}
		switch obj := v.(type) {
		case map[string]any:
			args = obj
		case nil:
		default:
			return nil, &ArgumentError{Tool: def.Name, Detail: "arguments must be a JSON object"}
		}
	}
	args = dropNulls(args)
	if err := validate(def.Schema, args); err != nil {
		return nil, &ArgumentError{Tool: def.Name, Detail: err.Error()}
	}
	return args, nil
}

// decode fills a typed argument struct and runs its Validate method.
func decode[T any](name Name, args map[string]any) (T, error) {
	var out T
	if err := configutil.DecodeSettings(args, &out); err != nil {
		return out, &ArgumentError{Tool: name, Detail: err.Error()}
	}
	if v, ok := any(&out).(validator); ok {
		if err := v.Validate(); err != nil {
			return out, &ArgumentError{Tool: name, Detail: err.Error()}
		}
	}
	return out, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s: %q is not a YYYY-MM-DD date", field, s)
}

type CreateTaskArgs struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Priority    string `mapstructure:"priority"`
	DueDate     string `mapstructure:"dueDate"`
	Duration    *int   `mapstructure:"duration"`

	due *time.Time
}

func (a *CreateTaskArgs) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("title is required")
	}
	due, err := parseDate("dueDate", a.DueDate)
	if err != nil {
		return err
	}
	a.due = due
	return nil
}

func (a CreateTaskArgs) NewTask() backend.NewTask {
	return backend.NewTask{
		Title:       a.Title,
		Description: a.Description,
		Priority:    backend.Priority(a.Priority),
		DueDate:     a.due,
		Duration:    a.Duration,
	}
}

type CreateHabitArgs struct {
	Title     string `mapstructure:"title"`
	Frequency string `mapstructure:"frequency"`
}

func (a *CreateHabitArgs) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if !backend.Frequency(a.Frequency).Valid() {
		return fmt.Errorf("frequency must be DAILY or WEEKLY")
	}
	return nil
}

type CompleteHabitArgs struct {
	HabitID string `mapstructure:"habitId"`
}

func (a *CompleteHabitArgs) Validate() error {
	if strings.TrimSpace(a.HabitID) == "" {
		return fmt.Errorf("habitId is required")
	}
	return nil
}

type AddTransactionArgs struct {
	Amount        float64  `mapstructure:"amount"`
	Type          string   `mapstructure:"type"`
	Category      string   `mapstructure:"category"`
	Description   string   `mapstructure:"description"`
	Date          string   `mapstructure:"date"`
	PaymentMethod string   `mapstructure:"paymentMethod"`
	AccountID     string   `mapstructure:"accountId"`
	Tags          []string `mapstructure:"tags"`

	date *time.Time
}

func (a *AddTransactionArgs) Validate() error {
	if !(a.Amount > 0) {
		return fmt.Errorf("amount must be greater than zero")
	}
	if !backend.TransactionType(a.Type).Valid() {
		return fmt.Errorf("type must be INCOME or EXPENSE")
	}
	if strings.TrimSpace(a.Category) == "" {
		return fmt.Errorf("category is required")
	}
	date, err := parseDate("date", a.Date)
	if err != nil {
		return err
	}
	a.date = date
	return nil
}

func (a AddTransactionArgs) NewTransaction() backend.NewTransaction {
	return backend.NewTransaction{
		Amount:        a.Amount,
		Type:          backend.TransactionType(a.Type),
		Category:      a.Category,
		Description:   a.Description,
		PaymentMethod: a.PaymentMethod,
		AccountID:     a.AccountID,
		Tags:          a.Tags,
		Date:          a.date,
	}
}

type ListTransactionsArgs struct {
	Limit int `mapstructure:"limit"`
}

func (a *ListTransactionsArgs) Validate() error {
	if a.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	return nil
}

type AddAccountArgs struct {
	Name     string  `mapstructure:"name"`
	Type     string  `mapstructure:"type"`
	Balance  float64 `mapstructure:"balance"`
	Currency string  `mapstructure:"currency"`
}

func (a *AddAccountArgs) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !backend.AccountType(a.Type).Valid() {
		return fmt.Errorf("type %q is not an account type", a.Type)
	}
	return nil
}

type AddSavingsGoalArgs struct {
	Name     string  `mapstructure:"name"`
	Target   float64 `mapstructure:"target"`
	Deadline string  `mapstructure:"deadline"`

	deadline *time.Time
}

func (a *AddSavingsGoalArgs) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !(a.Target > 0) {
		return fmt.Errorf("target must be greater than zero")
	}
	d, err := parseDate("deadline", a.Deadline)
	if err != nil {
		return err
	}
	a.deadline = d
	return nil
}

type UpdateSavingsGoalArgs struct {
	GoalID  string  `mapstructure:"goalId"`
	Current float64 `mapstructure:"current"`
}

func (a *UpdateSavingsGoalArgs) Validate() error {
	if strings.TrimSpace(a.GoalID) == "" {
		return fmt.Errorf("goalId is required")
	}
	if a.Current < 0 {
		return fmt.Errorf("current must not be negative")
	}
	return nil
}
