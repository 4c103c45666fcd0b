package sqlite

import (
	"context"

	"github.com/google/uuid"
	"github.com/harunnryd/flowlist/pkg/backend"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *Store) AddTransaction(ctx context.Context, userID string, in backend.NewTransaction) (backend.Transaction, error) {
	in, err := in.Normalize()
	if err != nil {
		return backend.Transaction{}, err
	}
	now := s.now()
	date := now
	if in.Date != nil {
		date = *in.Date
	}
	row := transactionRow{
		ID:            uuid.NewString(),
		UserID:        userID,
		AccountID:     in.AccountID,
		Amount:        in.Amount,
		Type:          string(in.Type),
		Category:      in.Category,
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		Tags:          datatypes.JSONSlice[string](in.Tags),
		Date:          date,
		CreatedAt:     now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if in.AccountID == "" {
			return nil
		}
		res := tx.Model(&accountRow{}).
			Where("id = ? AND user_id = ?", in.AccountID, userID).
			Update("balance", gorm.Expr("balance + ?", backend.BalanceAdjustment(in.Type, in.Amount)))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return backend.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return backend.Transaction{}, err
	}
	return row.toTransaction(), nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]backend.Transaction, error) {
	var rows []transactionRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("rowid DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]backend.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.toTransaction()
	}
	sortByDateDesc(out)
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
	in, err := in.Normalize()
	if err != nil {
		return backend.Account{}, err
	}
	row := accountRow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Type:      string(in.Type),
		Balance:   in.Balance,
		Currency:  in.Currency,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return backend.Account{}, err
	}
	return row.toAccount(), nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]backend.Account, error) {
	var rows []accountRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("rowid").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]backend.Account, len(rows))
	for i, r := range rows {
		out[i] = r.toAccount()
	}
	return out, nil
}

func (s *Store) AddAsset(ctx context.Context, userID string, in backend.NewAsset) (backend.Asset, error) {
	in, err := in.Normalize()
	if err != nil {
		return backend.Asset{}, err
	}
	row := assetRow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Type:      in.Type,
		Value:     in.Value,
		AccountID: in.AccountID,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return backend.Asset{}, err
	}
	return backend.Asset{
		ID: row.ID, UserID: row.UserID, Name: row.Name, Type: row.Type,
		Value: row.Value, AccountID: row.AccountID, CreatedAt: row.CreatedAt,
	}, nil
}

func (s *Store) AddLiability(ctx context.Context, userID string, in backend.NewLiability) (backend.Liability, error) {
	in, err := in.Normalize()
	if err != nil {
		return backend.Liability{}, err
	}
	row := liabilityRow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Type:      in.Type,
		Amount:    in.Amount,
		AccountID: in.AccountID,
		DueDate:   in.DueDate,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return backend.Liability{}, err
	}
	return backend.Liability{
		ID: row.ID, UserID: row.UserID, Name: row.Name, Type: row.Type,
		Amount: row.Amount, AccountID: row.AccountID, DueDate: row.DueDate, CreatedAt: row.CreatedAt,
	}, nil
}

func (s *Store) NetWorth(ctx context.Context, userID string) (backend.NetWorth, error) {
	db := s.db.WithContext(ctx)
	var (
		assetRows     []assetRow
		liabilityRows []liabilityRow
	)
	if err := db.Where("user_id = ?", userID).Find(&assetRows).Error; err != nil {
		return backend.NetWorth{}, err
	}
	if err := db.Where("user_id = ?", userID).Find(&liabilityRows).Error; err != nil {
		return backend.NetWorth{}, err
	}
	accounts, err := s.ListAccounts(ctx, userID)
	if err != nil {
		return backend.NetWorth{}, err
	}
	assets := make([]backend.Asset, len(assetRows))
	for i, a := range assetRows {
		assets[i] = backend.Asset{Value: a.Value}
	}
	liabilities := make([]backend.Liability, len(liabilityRows))
	for i, l := range liabilityRows {
		liabilities[i] = backend.Liability{Amount: l.Amount}
	}
	return backend.ComputeNetWorth(assets, liabilities, accounts), nil
}

func (s *Store) AddSavingsGoal(ctx context.Context, userID string, in backend.NewSavingsGoal) (backend.SavingsGoal, error) {
	in, err := in.Normalize()
	if err != nil {
		return backend.SavingsGoal{}, err
	}
	row := savingsGoalRow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Target:    in.Target,
		Deadline:  in.Deadline,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return backend.SavingsGoal{}, err
	}
	return row.toGoal(), nil
}

func (s *Store) ListSavingsGoals(ctx context.Context, userID string) ([]backend.SavingsGoal, error) {
	var rows []savingsGoalRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("rowid").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]backend.SavingsGoal, len(rows))
	for i, r := range rows {
		out[i] = r.toGoal()
	}
	return out, nil
}

func (s *Store) UpdateSavingsGoal(ctx context.Context, userID, goalID string, current float64) (backend.SavingsGoal, error) {
	if current < 0 {
		return backend.SavingsGoal{}, &backend.ValidationError{Field: "current", Message: "must not be negative"}
	}
	var row savingsGoalRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", goalID, userID).First(&row).Error; err != nil {
			return notFound(err)
		}
		row.Current = current
		return tx.Save(&row).Error
	})
	if err != nil {
		return backend.SavingsGoal{}, err
	}
	return row.toGoal(), nil
}
