// Package store implements ledger.Store on gorm. Every guarded mutation is a
// single conditional UPDATE checked through RowsAffected, so concurrent
// requests cannot oversell stock, overdraw a balance or double-settle a task.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/augenstern326/star-exchange/internal/ledger"
	"github.com/augenstern326/star-exchange/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Tx runs fn inside one database transaction. The inner Store shares the
// transaction handle, so nested calls see uncommitted writes and roll back
// together.
func (s *Store) Tx(ctx context.Context, fn func(ledger.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, ledger.ErrUserNotFound)
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, notFound(err, ledger.ErrUserNotFound)
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: username %q is taken", ledger.ErrValidation, u.Username)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) ListChildren(ctx context.Context, parentID uint) ([]models.User, error) {
	var children []models.User
	err := s.db.WithContext(ctx).
		Where("parent_id = ? AND role = ?", parentID, models.RoleChild).
		Order("created_at").
		Find(&children).Error
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

// AdjustBalance applies a signed delta to star_balance, bumping total_earned
// for credits and total_spent for debits. Debits carry a star_balance >= ?
// guard; zero rows affected on an existing user means the guard tripped.
func (s *Store) AdjustBalance(ctx context.Context, userID uint, delta int) (*models.User, error) {
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID)
	var updates map[string]any
	if delta >= 0 {
		updates = map[string]any{
			"star_balance": gorm.Expr("star_balance + ?", delta),
			"total_earned": gorm.Expr("total_earned + ?", delta),
		}
	} else {
		q = q.Where("star_balance >= ?", -delta)
		updates = map[string]any{
			"star_balance": gorm.Expr("star_balance - ?", -delta),
			"total_spent":  gorm.Expr("total_spent + ?", -delta),
		}
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("adjust balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetUser(ctx, userID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: user %d cannot cover %d stars", ledger.ErrInsufficientBalance, userID, -delta)
	}
	return s.GetUser(ctx, userID)
}

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, notFound(err, ledger.ErrTaskNotFound)
	}
	return &task, nil
}

func (s *Store) ListTasks(ctx context.Context, f ledger.TaskFilter) ([]models.Task, error) {
	q := s.db.WithContext(ctx).Model(&models.Task{})
	if f.ParentID != nil {
		q = q.Where("parent_id = ?", *f.ParentID)
	}
	if f.ChildID != nil {
		q = q.Where("child_id = ?", *f.ChildID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	var tasks []models.Task
	if err := q.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) TransitionTask(ctx context.Context, id uint, from []models.TaskStatus, to models.TaskStatus) (bool, error) {
	updates := map[string]any{"status": to}
	now := time.Now()
	switch to {
	case models.TaskCompleted:
		updates["completed_at"] = &now
	case models.TaskApproved:
		updates["approved_at"] = &now
	}
	res := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("transition task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) DeleteTask(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.Task{}, id).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *Store) CountTasks(ctx context.Context, f ledger.TaskFilter) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Task{})
	if f.ParentID != nil {
		q = q.Where("parent_id = ?", *f.ParentID)
	}
	if f.ChildID != nil {
		q = q.Where("child_id = ?", *f.ChildID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, notFound(err, ledger.ErrProductNotFound)
	}
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context, f ledger.ProductFilter) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if f.ParentID != nil {
		q = q.Where("parent_id = ?", *f.ParentID)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var products []models.Product
	if err := q.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"name":        p.Name,
			"description": p.Description,
			"price_stars": p.PriceStars,
			"is_active":   p.IsActive,
		})
	if res.Error != nil {
		return fmt.Errorf("update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: product %d", ledger.ErrProductNotFound, p.ID)
	}
	return nil
}

// AdjustStock applies a signed stock delta. Decrements carry a
// stock_quantity >= ? guard so stock can never go negative.
func (s *Store) AdjustStock(ctx context.Context, productID uint, delta int) error {
	q := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID)
	if delta < 0 {
		q = q.Where("stock_quantity >= ?", -delta)
	}
	res := q.Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjust stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetProduct(ctx, productID); err != nil {
			return err
		}
		return fmt.Errorf("%w: product %d cannot cover %d units", ledger.ErrInsufficientStock, productID, -delta)
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.Product{}, id).Error; err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (s *Store) CreateExchange(ctx context.Context, e *models.Exchange) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("create exchange: %w", err)
	}
	return nil
}

func (s *Store) GetExchange(ctx context.Context, id uint) (*models.Exchange, error) {
	var exchange models.Exchange
	if err := s.db.WithContext(ctx).First(&exchange, id).Error; err != nil {
		return nil, notFound(err, ledger.ErrExchangeNotFound)
	}
	return &exchange, nil
}

func (s *Store) ListExchanges(ctx context.Context, childID *uint) ([]models.Exchange, error) {
	q := s.db.WithContext(ctx).Model(&models.Exchange{})
	if childID != nil {
		q = q.Where("child_id = ?", *childID)
	}
	var exchanges []models.Exchange
	if err := q.Order("created_at DESC").Find(&exchanges).Error; err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	return exchanges, nil
}

func (s *Store) TransitionExchange(ctx context.Context, id uint, from, to models.ExchangeStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Exchange{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("transition exchange: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) CountExchanges(ctx context.Context, childID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Exchange{}).
		Where("child_id = ?", childID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count exchanges: %w", err)
	}
	return n, nil
}

func (s *Store) AppendTransaction(ctx context.Context, t *models.StarTransaction) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, childID *uint, limit int) ([]models.StarTransaction, error) {
	q := s.db.WithContext(ctx).Model(&models.StarTransaction{})
	if childID != nil {
		q = q.Where("child_id = ?", *childID)
	}
	var txs []models.StarTransaction
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *Store) SumTransactions(ctx context.Context, childID uint) (int, error) {
	var sum int64
	err := s.db.WithContext(ctx).Model(&models.StarTransaction{}).
		Where("child_id = ?", childID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return int(sum), nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
