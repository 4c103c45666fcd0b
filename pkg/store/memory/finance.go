package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/harunnryd/flowlist/pkg/backend"
)

func (u *userData) account(id string) *backend.Account {
	for _, a := range u.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Store) AddTransaction(ctx context.Context, userID string, in backend.NewTransaction) (backend.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return backend.Transaction{}, err
	}
	in, err := in.Normalize()
	if err != nil {
		return backend.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	var acc *backend.Account
	if in.AccountID != "" {
		if acc = u.account(in.AccountID); acc == nil {
			return backend.Transaction{}, backend.ErrNotFound
		}
	}
	now := s.now()
	date := now
	if in.Date != nil {
		date = *in.Date
	}
	tx := backend.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		AccountID:     in.AccountID,
		Amount:        in.Amount,
		Type:          in.Type,
		Category:      in.Category,
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		Tags:          append([]string{}, in.Tags...),
		Date:          date,
		CreatedAt:     now,
	}
	u.transactions = append(u.transactions, seqTx{seq: s.next(), Transaction: tx})
	if acc != nil {
		acc.Balance += backend.BalanceAdjustment(in.Type, in.Amount)
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]backend.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := append([]seqTx(nil), s.user(userID).transactions...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date.Equal(rows[j].Date) {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].Date.After(rows[j].Date)
	})
	out := make([]backend.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.Transaction
	}
	return out, nil
}

func (s *Store) BalanceStatus(ctx context.Context, userID string) (backend.BalanceStatus, error) {
	txs, err := s.ListTransactions(ctx, userID)
	if err != nil {
		return backend.BalanceStatus{}, err
	}
	return backend.ComputeBalance(txs), nil
}

func (s *Store) AddAccount(ctx context.Context, userID string, in backend.NewAccount) (backend.Account, error) {
	if err := ctx.Err(); err != nil {
		return backend.Account{}, err
	}
	in, err := in.Normalize()
	if err != nil {
		return backend.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := &backend.Account{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Type:      in.Type,
		Balance:   in.Balance,
		Currency:  in.Currency,
		CreatedAt: s.now(),
	}
	u := s.user(userID)
	u.accounts = append(u.accounts, acc)
	return *acc, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]backend.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	out := make([]backend.Account, len(u.accounts))
	for i, a := range u.accounts {
		out[i] = *a
	}
	return out, nil
}

func (s *Store) AddAsset(ctx context.Context, userID string, in backend.NewAsset) (backend.Asset, error) {
	if err := ctx.Err(); err != nil {
		return backend.Asset{}, err
	}
	in, err := in.Normalize()
	if err != nil {
		return backend.Asset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := backend.Asset{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Type:      in.Type,
		Value:     in.Value,
		AccountID: in.AccountID,
		CreatedAt: s.now(),
	}
	u := s.user(userID)
	u.assets = append(u.assets, a)
	return a, nil
}

func (s *Store) AddLiability(ctx context.Context, userID string, in backend.NewLiability) (backend.Liability, error) {
	if err := ctx.Err(); err != nil {
		return backend.Liability{}, err
	}
	in, err := in.Normalize()
	if err != nil {
		return backend.Liability{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := backend.Liability{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Type:      in.Type,
		Amount:    in.Amount,
		AccountID: in.AccountID,
		DueDate:   in.DueDate,
		CreatedAt: s.now(),
	}
	u := s.user(userID)
	u.liabilities = append(u.liabilities, l)
	return l, nil
}

func (s *Store) NetWorth(ctx context.Context, userID string) (backend.NetWorth, error) {
	if err := ctx.Err(); err != nil {
		return backend.NetWorth{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	accounts := make([]backend.Account, len(u.accounts))
	for i, a := range u.accounts {
		accounts[i] = *a
	}
	return backend.ComputeNetWorth(u.assets, u.liabilities, accounts), nil
}

func (s *Store) AddSavingsGoal(ctx context.Context, userID string, in backend.NewSavingsGoal) (backend.SavingsGoal, error) {
	if err := ctx.Err(); err != nil {
		return backend.SavingsGoal{}, err
	}
	in, err := in.Normalize()
	if err != nil {
		return backend.SavingsGoal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &backend.SavingsGoal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Target:    in.Target,
		Deadline:  in.Deadline,
		CreatedAt: s.now(),
	}
	u := s.user(userID)
	u.goals = append(u.goals, g)
	return *g, nil
}

func (s *Store) ListSavingsGoals(ctx context.Context, userID string) ([]backend.SavingsGoal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	out := make([]backend.SavingsGoal, len(u.goals))
	for i, g := range u.goals {
		out[i] = *g
	}
	return out, nil
}

func (s *Store) UpdateSavingsGoal(ctx context.Context, userID, goalID string, current float64) (backend.SavingsGoal, error) {
	if err := ctx.Err(); err != nil {
		return backend.SavingsGoal{}, err
	}
	if current < 0 {
		return backend.SavingsGoal{}, &backend.ValidationError{Field: "current", Message: "must not be negative"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.user(userID).goals {
		if g.ID == goalID {
			g.Current = current
			return *g, nil
		}
	}
	return backend.SavingsGoal{}, backend.ErrNotFound
}
