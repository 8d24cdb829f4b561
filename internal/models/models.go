package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskApproved   TaskStatus = "approved"
	TaskRejected   TaskStatus = "rejected"
)

type ExchangeStatus string

const (
	ExchangePending   ExchangeStatus = "pending"
	ExchangeCompleted ExchangeStatus = "completed"
	ExchangeCancelled ExchangeStatus = "cancelled"
)

type TransactionType string

const (
	TxTaskCompleted TransactionType = "task_completed"
	TxTaskApproved  TransactionType = "task_approved"
	TxExchange      TransactionType = "exchange"
	TxManualAdd     TransactionType = "manual_add"
	TxManualDeduct  TransactionType = "manual_deduct"
)

type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string `gorm:"size:100" json:"email,omitempty"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         Role   `gorm:"size:20;index;not null;default:child" json:"role"`
	ParentID     *uint  `gorm:"index" json:"parent_id,omitempty"`
	Nickname     string `gorm:"size:100" json:"nickname,omitempty"`
	StarBalance  int    `gorm:"not null;default:0" json:"star_balance"`
	TotalEarned  int    `gorm:"not null;default:0" json:"total_earned"`
	TotalSpent   int    `gorm:"not null;default:0" json:"total_spent"`
	IsActive     bool   `gorm:"not null;default:true" json:"is_active"`
}

type Task struct {
	gorm.Model
	ParentID         uint       `gorm:"index:idx_tasks_parent_child;not null" json:"parent_id"`
	ChildID          *uint      `gorm:"index:idx_tasks_parent_child" json:"child_id,omitempty"`
	Title            string     `gorm:"size:200;not null" json:"title"`
	Description      string     `gorm:"type:text" json:"description,omitempty"`
	RewardStars      int        `gorm:"not null" json:"reward_stars"`
	RequiresApproval bool       `gorm:"not null;default:true" json:"requires_approval"`
	Status           TaskStatus `gorm:"size:20;index;not null;default:pending" json:"status"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
}

type Product struct {
	gorm.Model
	ParentID      uint   `gorm:"index;not null" json:"parent_id"`
	Name          string `gorm:"size:200;not null" json:"name"`
	Description   string `gorm:"type:text" json:"description,omitempty"`
	PriceStars    int    `gorm:"not null" json:"price_stars"`
	StockQuantity int    `gorm:"not null;default:0" json:"stock_quantity"`
	IsActive      bool   `gorm:"index;not null;default:true" json:"is_active"`
}

type Exchange struct {
	gorm.Model
	ChildID   uint           `gorm:"index;not null" json:"child_id"`
	ProductID uint           `gorm:"index;not null" json:"product_id"`
	StarsUsed int            `gorm:"not null" json:"stars_used"`
	Quantity  int            `gorm:"not null;default:1" json:"quantity"`
	Status    ExchangeStatus `gorm:"size:20;index;not null;default:pending" json:"status"`
	Notes     string         `gorm:"type:text" json:"notes,omitempty"`
}

// StarTransaction is the append-only audit ledger. Rows are inserted in the
// same database transaction as the balance mutation they describe and are
// never updated or deleted afterwards.
type StarTransaction struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	ChildID       uint            `gorm:"index;not null" json:"child_id"`
	ParentID      *uint           `json:"parent_id,omitempty"`
	Type          TransactionType `gorm:"column:transaction_type;size:50;index;not null" json:"transaction_type"`
	Amount        int             `gorm:"not null" json:"amount"`
	ReferenceType string          `gorm:"size:50" json:"reference_type,omitempty"`
	ReferenceID   *uint           `json:"reference_id,omitempty"`
	Description   string          `gorm:"size:500" json:"description,omitempty"`
	BalanceAfter  int             `gorm:"not null" json:"balance_after"`
	CreatedAt     time.Time       `json:"created_at"`
}
