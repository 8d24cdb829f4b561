package ledger

import (
	"context"

	"github.com/augenstern326/star-exchange/internal/models"
)

// TaskFilter narrows ListTasks. Nil fields match everything.
type TaskFilter struct {
	ParentID *uint
	ChildID  *uint
	Status   *models.TaskStatus
}

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	ParentID   *uint
	ActiveOnly bool
}

// Store is the persistence boundary of the ledger core. Implementations must
// make Tx atomic: either every write issued through the inner Store commits,
// or none do. Guarded mutations (AdjustBalance with a negative delta,
// AdjustStock, the conditional status transitions) must be compare-and-swap
// style updates, not read-then-write.
type Store interface {
	// Tx runs fn against a Store bound to one database transaction.
	// Returning an error rolls every write back.
	Tx(ctx context.Context, fn func(Store) error) error

	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	ListChildren(ctx context.Context, parentID uint) ([]models.User, error)

	// AdjustBalance is the only write path for star_balance, total_earned
	// and total_spent. A negative delta must fail with
	// ErrInsufficientBalance instead of taking the balance below zero.
	AdjustBalance(ctx context.Context, userID uint, delta int) (*models.User, error)

	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id uint) (*models.Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error)
	// TransitionTask moves a task from one of the given statuses to the
	// target status, reporting whether any row matched.
	TransitionTask(ctx context.Context, id uint, from []models.TaskStatus, to models.TaskStatus) (bool, error)
	DeleteTask(ctx context.Context, id uint) error

	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	// AdjustStock applies a stock delta, failing with ErrInsufficientStock
	// if the result would be negative.
	AdjustStock(ctx context.Context, productID uint, delta int) error
	DeleteProduct(ctx context.Context, id uint) error

	CreateExchange(ctx context.Context, e *models.Exchange) error
	GetExchange(ctx context.Context, id uint) (*models.Exchange, error)
	ListExchanges(ctx context.Context, childID *uint) ([]models.Exchange, error)
	// TransitionExchange moves an exchange between statuses with the same
	// row-matched contract as TransitionTask.
	TransitionExchange(ctx context.Context, id uint, from, to models.ExchangeStatus) (bool, error)

	AppendTransaction(ctx context.Context, t *models.StarTransaction) error
	ListTransactions(ctx context.Context, childID *uint, limit int) ([]models.StarTransaction, error)
	SumTransactions(ctx context.Context, childID uint) (int, error)
	CountTasks(ctx context.Context, f TaskFilter) (int64, error)
	CountExchanges(ctx context.Context, childID uint) (int64, error)
}
