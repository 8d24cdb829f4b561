// Package ledger holds the star-balance business core: the task reward state
// machine, the product exchange engine and the manual adjustment path. All
// balance effects go through Store.AdjustBalance and append a StarTransaction
// inside the same database transaction, so the audit ledger always reconciles
// with the live balance.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/augenstern326/star-exchange/internal/models"
)

const defaultTransactionLimit = 50

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

type CreateAccountInput struct {
	Username     string
	Email        string
	PasswordHash string
	Role         models.Role
	ParentID     *uint
	Nickname     string
}

func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.PasswordHash == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	switch in.Role {
	case models.RoleParent:
		if in.ParentID != nil {
			return nil, fmt.Errorf("%w: parent accounts cannot have a parent_id", ErrValidation)
		}
	case models.RoleChild:
		if in.ParentID == nil {
			return nil, fmt.Errorf("%w: child accounts require a parent_id", ErrValidation)
		}
		parent, err := s.store.GetUser(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Role != models.RoleParent {
			return nil, fmt.Errorf("%w: parent_id must reference a parent account", ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: role must be parent or child", ErrValidation)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		ParentID:     in.ParentID,
		Nickname:     in.Nickname,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetAccount(ctx context.Context, id uint) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) GetAccountByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.store.GetUserByUsername(ctx, username)
}

func (s *Service) ListChildren(ctx context.Context, parentID uint) ([]models.User, error) {
	return s.store.ListChildren(ctx, parentID)
}

// AdjustBalance applies a manual reward or penalty to a child account and
// records it as manual_add / manual_deduct.
func (s *Service) AdjustBalance(ctx context.Context, childID uint, amount int, description string, parentID *uint) (*models.User, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be non-zero", ErrValidation)
	}
	child, err := s.requireChild(ctx, childID)
	if err != nil {
		return nil, err
	}

	var updated *models.User
	err = s.store.Tx(ctx, func(tx Store) error {
		updated, err = tx.AdjustBalance(ctx, child.ID, amount)
		if err != nil {
			return err
		}
		txType := models.TxManualAdd
		if amount < 0 {
			txType = models.TxManualDeduct
		}
		return tx.AppendTransaction(ctx, &models.StarTransaction{
			ChildID:      child.ID,
			ParentID:     parentID,
			Type:         txType,
			Amount:       amount,
			Description:  description,
			BalanceAfter: updated.StarBalance,
		})
	})
	if err != nil {
		return nil, err
	}
	observeAdjustment(amount)
	s.log.Info("manual balance adjustment",
		zap.Uint("child_id", childID), zap.Int("amount", amount))
	return updated, nil
}

func (s *Service) CreateTask(ctx context.Context, t *models.Task) (*models.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if t.RewardStars == 0 {
		return nil, fmt.Errorf("%w: reward_stars must be non-zero", ErrValidation)
	}
	parent, err := s.store.GetUser(ctx, t.ParentID)
	if err != nil {
		return nil, err
	}
	if parent.Role != models.RoleParent {
		return nil, fmt.Errorf("%w: tasks can only be created by parents", ErrValidation)
	}
	if t.ChildID != nil {
		if _, err := s.requireChild(ctx, *t.ChildID); err != nil {
			return nil, err
		}
	}

	if t.RequiresApproval {
		t.Status = models.TaskPending
		if err := s.store.CreateTask(ctx, t); err != nil {
			return nil, err
		}
		return t, nil
	}

	// No approval step: the task is born approved and the reward is applied
	// immediately as a manual adjustment.
	t.Status = models.TaskApproved
	err = s.store.Tx(ctx, func(tx Store) error {
		if err := tx.CreateTask(ctx, t); err != nil {
			return err
		}
		if t.ChildID == nil {
			return nil
		}
		updated, err := tx.AdjustBalance(ctx, *t.ChildID, t.RewardStars)
		if err != nil {
			return err
		}
		txType := models.TxManualAdd
		if t.RewardStars < 0 {
			txType = models.TxManualDeduct
		}
		refID := t.ID
		return tx.AppendTransaction(ctx, &models.StarTransaction{
			ChildID:       *t.ChildID,
			ParentID:      &t.ParentID,
			Type:          txType,
			Amount:        t.RewardStars,
			ReferenceType: "task",
			ReferenceID:   &refID,
			Description:   "Direct reward: " + t.Title,
			BalanceAfter:  updated.StarBalance,
		})
	})
	if err != nil {
		return nil, err
	}
	observeReward(t.RewardStars)
	return t, nil
}

func (s *Service) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	return s.store.GetTask(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	return s.store.ListTasks(ctx, f)
}

// StartTask moves a pending task to in_progress. Purely informational for the
// ledger, but keeps the state machine explicit.
func (s *Service) StartTask(ctx context.Context, id uint) (*models.Task, error) {
	return s.transitionTask(ctx, id, []models.TaskStatus{models.TaskPending}, models.TaskInProgress)
}

// CompleteTask marks a task done by the child. No balance change happens here;
// rewards are only applied at approval.
func (s *Service) CompleteTask(ctx context.Context, id uint) (*models.Task, error) {
	return s.transitionTask(ctx, id,
		[]models.TaskStatus{models.TaskPending, models.TaskInProgress}, models.TaskCompleted)
}

// ApproveTask settles a completed task. Approval credits reward_stars exactly
// once: the completed→approved transition is a conditional update, so a
// concurrent duplicate approval loses the race and reports ErrInvalidState.
func (s *Service) ApproveTask(ctx context.Context, id uint, approved bool) (*models.Task, error) {
	if !approved {
		return s.transitionTask(ctx, id, []models.TaskStatus{models.TaskCompleted}, models.TaskRejected)
	}

	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.store.Tx(ctx, func(tx Store) error {
		ok, err := tx.TransitionTask(ctx, id, []models.TaskStatus{models.TaskCompleted}, models.TaskApproved)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: task %d is %s, not completed", ErrInvalidState, id, task.Status)
		}
		if task.ChildID == nil || task.RewardStars == 0 {
			return nil
		}
		updated, err := tx.AdjustBalance(ctx, *task.ChildID, task.RewardStars)
		if err != nil {
			return err
		}
		refID := task.ID
		return tx.AppendTransaction(ctx, &models.StarTransaction{
			ChildID:       *task.ChildID,
			ParentID:      &task.ParentID,
			Type:          models.TxTaskApproved,
			Amount:        task.RewardStars,
			ReferenceType: "task",
			ReferenceID:   &refID,
			Description:   "Task approved: " + task.Title,
			BalanceAfter:  updated.StarBalance,
		})
	})
	if err != nil {
		return nil, err
	}
	observeReward(task.RewardStars)
	tasksApproved.Inc()
	return s.store.GetTask(ctx, id)
}

// DeleteTask removes a task that never touched the ledger. Approved tasks are
// referenced by star transactions and must stay.
func (s *Service) DeleteTask(ctx context.Context, id uint) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	switch task.Status {
	case models.TaskPending, models.TaskInProgress, models.TaskRejected:
		return s.store.DeleteTask(ctx, id)
	default:
		return fmt.Errorf("%w: cannot delete a %s task", ErrInvalidState, task.Status)
	}
}

func (s *Service) transitionTask(ctx context.Context, id uint, from []models.TaskStatus, to models.TaskStatus) (*models.Task, error) {
	// Existence check first so a missing task reports not-found rather than
	// a state error.
	if _, err := s.store.GetTask(ctx, id); err != nil {
		return nil, err
	}
	ok, err := s.store.TransitionTask(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: task %d cannot move to %s", ErrInvalidState, id, to)
	}
	return s.store.GetTask(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.PriceStars <= 0 {
		return nil, fmt.Errorf("%w: price_stars must be positive", ErrValidation)
	}
	if p.StockQuantity < 0 {
		return nil, fmt.Errorf("%w: stock_quantity cannot be negative", ErrValidation)
	}
	parent, err := s.store.GetUser(ctx, p.ParentID)
	if err != nil {
		return nil, err
	}
	if parent.Role != models.RoleParent {
		return nil, fmt.Errorf("%w: products can only be created by parents", ErrValidation)
	}
	p.IsActive = true
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	return s.store.ListProducts(ctx, f)
}

type UpdateProductInput struct {
	Name        *string
	Description *string
	PriceStars  *int
	StockDelta  *int
	IsActive    *bool
}

func (s *Service) UpdateProduct(ctx context.Context, id uint, in UpdateProductInput) (*models.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		product.Name = name
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.PriceStars != nil {
		if *in.PriceStars <= 0 {
			return nil, fmt.Errorf("%w: price_stars must be positive", ErrValidation)
		}
		product.PriceStars = *in.PriceStars
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}

	err = s.store.Tx(ctx, func(tx Store) error {
		if err := tx.UpdateProduct(ctx, product); err != nil {
			return err
		}
		if in.StockDelta != nil && *in.StockDelta != 0 {
			return tx.AdjustStock(ctx, id, *in.StockDelta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetProduct(ctx, id)
}

func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	if _, err := s.store.GetProduct(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteProduct(ctx, id)
}

// Exchange redeems quantity units of a product for a child. Preconditions are
// checked in a fixed order so each failure mode has a distinct error; the
// decisive guards run again inside the database transaction, so concurrent
// exchanges cannot oversell stock or overdraw a balance.
func (s *Service) Exchange(ctx context.Context, childID, productID uint, quantity int) (*models.Exchange, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%w: product %d is not active", ErrProductNotFound, productID)
	}
	if product.StockQuantity < quantity {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrInsufficientStock, quantity, product.StockQuantity)
	}
	child, err := s.requireChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	cost := product.PriceStars * quantity
	if child.StarBalance < cost {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientBalance, cost, child.StarBalance)
	}

	exchange := &models.Exchange{
		ChildID:   childID,
		ProductID: productID,
		StarsUsed: cost,
		Quantity:  quantity,
		Status:    models.ExchangePending,
	}
	err = s.store.Tx(ctx, func(tx Store) error {
		if err := tx.CreateExchange(ctx, exchange); err != nil {
			return err
		}
		if err := tx.AdjustStock(ctx, productID, -quantity); err != nil {
			return err
		}
		updated, err := tx.AdjustBalance(ctx, childID, -cost)
		if err != nil {
			return err
		}
		refID := exchange.ID
		return tx.AppendTransaction(ctx, &models.StarTransaction{
			ChildID:       childID,
			Type:          models.TxExchange,
			Amount:        -cost,
			ReferenceType: "exchange",
			ReferenceID:   &refID,
			Description:   "Exchanged: " + product.Name,
			BalanceAfter:  updated.StarBalance,
		})
	})
	if err != nil {
		return nil, err
	}
	exchangesTotal.WithLabelValues("created").Inc()
	starsSpent.Add(float64(cost))
	s.log.Info("exchange created",
		zap.Uint("child_id", childID), zap.Uint("product_id", productID),
		zap.Int("quantity", quantity), zap.Int("stars_used", cost))
	return exchange, nil
}

func (s *Service) GetExchange(ctx context.Context, id uint) (*models.Exchange, error) {
	return s.store.GetExchange(ctx, id)
}

func (s *Service) ListExchanges(ctx context.Context, childID *uint) ([]models.Exchange, error) {
	return s.store.ListExchanges(ctx, childID)
}

// CancelExchange reverses a pending exchange: stars go back as a positive
// ledger entry, stock is restored and the record is marked cancelled. The
// pending→cancelled transition is conditional, so completing and cancelling
// the same exchange concurrently settles to exactly one outcome.
func (s *Service) CancelExchange(ctx context.Context, id uint) (*models.Exchange, error) {
	exchange, err := s.store.GetExchange(ctx, id)
	if err != nil {
		return nil, err
	}
	product, err := s.store.GetProduct(ctx, exchange.ProductID)
	if err != nil {
		return nil, err
	}

	err = s.store.Tx(ctx, func(tx Store) error {
		ok, err := tx.TransitionExchange(ctx, id, models.ExchangePending, models.ExchangeCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: exchange %d is %s, not pending", ErrInvalidState, id, exchange.Status)
		}
		if err := tx.AdjustStock(ctx, exchange.ProductID, exchange.Quantity); err != nil {
			return err
		}
		updated, err := tx.AdjustBalance(ctx, exchange.ChildID, exchange.StarsUsed)
		if err != nil {
			return err
		}
		refID := exchange.ID
		return tx.AppendTransaction(ctx, &models.StarTransaction{
			ChildID:       exchange.ChildID,
			Type:          models.TxExchange,
			Amount:        exchange.StarsUsed,
			ReferenceType: "exchange",
			ReferenceID:   &refID,
			Description:   "Exchange cancelled: " + product.Name,
			BalanceAfter:  updated.StarBalance,
		})
	})
	if err != nil {
		return nil, err
	}
	exchangesTotal.WithLabelValues("cancelled").Inc()
	return s.store.GetExchange(ctx, id)
}

// CompleteExchange marks a pending exchange as fulfilled. Terminal.
func (s *Service) CompleteExchange(ctx context.Context, id uint) (*models.Exchange, error) {
	exchange, err := s.store.GetExchange(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.TransitionExchange(ctx, id, models.ExchangePending, models.ExchangeCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: exchange %d is %s, not pending", ErrInvalidState, id, exchange.Status)
	}
	exchangesTotal.WithLabelValues("completed").Inc()
	return s.store.GetExchange(ctx, id)
}

func (s *Service) ListTransactions(ctx context.Context, childID *uint, limit int) ([]models.StarTransaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	return s.store.ListTransactions(ctx, childID, limit)
}

// ReconcileReport compares the live balance with the audit ledger.
type ReconcileReport struct {
	ChildID     uint `json:"child_id"`
	StarBalance int  `json:"star_balance"`
	LedgerSum   int  `json:"ledger_sum"`
	Consistent  bool `json:"consistent"`
}

// Reconcile verifies the invariant star_balance == SUM(transactions.amount)
// for one child. Inconsistency indicates a bug, not a user error.
func (s *Service) Reconcile(ctx context.Context, childID uint) (*ReconcileReport, error) {
	child, err := s.requireChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	sum, err := s.store.SumTransactions(ctx, childID)
	if err != nil {
		return nil, err
	}
	report := &ReconcileReport{
		ChildID:     childID,
		StarBalance: child.StarBalance,
		LedgerSum:   sum,
		Consistent:  child.StarBalance == sum,
	}
	if !report.Consistent {
		s.log.Error("balance does not reconcile with ledger",
			zap.Uint("child_id", childID),
			zap.Int("star_balance", child.StarBalance),
			zap.Int("ledger_sum", sum))
	}
	return report, nil
}

// ChildStats is the dashboard summary for one child.
type ChildStats struct {
	ChildID       uint  `json:"child_id"`
	StarBalance   int   `json:"star_balance"`
	TotalEarned   int   `json:"total_earned"`
	TotalSpent    int   `json:"total_spent"`
	TasksApproved int64 `json:"tasks_approved"`
	TasksOpen     int64 `json:"tasks_open"`
	Exchanges     int64 `json:"exchanges"`
}

func (s *Service) Stats(ctx context.Context, childID uint) (*ChildStats, error) {
	child, err := s.requireChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	approved := models.TaskApproved
	doneCount, err := s.store.CountTasks(ctx, TaskFilter{ChildID: &childID, Status: &approved})
	if err != nil {
		return nil, err
	}
	pending := models.TaskPending
	openCount, err := s.store.CountTasks(ctx, TaskFilter{ChildID: &childID, Status: &pending})
	if err != nil {
		return nil, err
	}
	exchanges, err := s.store.CountExchanges(ctx, childID)
	if err != nil {
		return nil, err
	}
	return &ChildStats{
		ChildID:       childID,
		StarBalance:   child.StarBalance,
		TotalEarned:   child.TotalEarned,
		TotalSpent:    child.TotalSpent,
		TasksApproved: doneCount,
		TasksOpen:     openCount,
		Exchanges:     exchanges,
	}, nil
}

func (s *Service) requireChild(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleChild || !user.IsActive {
		return nil, fmt.Errorf("%w: user %d is not an active child account", ErrUserNotFound, id)
	}
	return user, nil
}
