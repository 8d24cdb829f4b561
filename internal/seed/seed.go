package seed

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/augenstern326/star-exchange/internal/ledger"
	"github.com/augenstern326/star-exchange/internal/logger"
	"github.com/augenstern326/star-exchange/internal/models"
)

const (
	seedPassword  = "password123"
	parentAccount = "demo-parent"
	childAccount  = "demo-child"
)

// Run seeds a demo family: one parent, one child with an opening balance
// booked through the ledger (so history reconciles), two products and one
// pending task. Idempotent.
func Run(svc *ledger.Service) {
	ctx := context.Background()

	if _, err := svc.GetAccountByUsername(ctx, parentAccount); err == nil {
		logger.Log.Info("seed already applied, skipping")
		return
	} else if !errors.Is(err, ledger.ErrUserNotFound) {
		logger.Log.Fatal("seed check failed", zap.Error(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash seed password", zap.Error(err))
	}
	hashed := string(hash)

	parent, err := svc.CreateAccount(ctx, ledger.CreateAccountInput{
		Username:     parentAccount,
		PasswordHash: hashed,
		Role:         models.RoleParent,
		Nickname:     "Demo Parent",
	})
	if err != nil {
		logger.Log.Fatal("failed to seed parent", zap.Error(err))
	}

	child, err := svc.CreateAccount(ctx, ledger.CreateAccountInput{
		Username:     childAccount,
		PasswordHash: hashed,
		Role:         models.RoleChild,
		ParentID:     &parent.ID,
		Nickname:     "Demo Child",
	})
	if err != nil {
		logger.Log.Fatal("failed to seed child", zap.Error(err))
	}

	if _, err := svc.AdjustBalance(ctx, child.ID, 20, "Opening balance", &parent.ID); err != nil {
		logger.Log.Fatal("failed to seed opening balance", zap.Error(err))
	}

	products := []models.Product{
		{ParentID: parent.ID, Name: "30 minutes of screen time", PriceStars: 10, StockQuantity: 5},
		{ParentID: parent.ID, Name: "Trip to the playground", PriceStars: 25, StockQuantity: 2},
	}
	for i := range products {
		if _, err := svc.CreateProduct(ctx, &products[i]); err != nil {
			logger.Log.Fatal("failed to seed product", zap.Error(err))
		}
	}

	if _, err := svc.CreateTask(ctx, &models.Task{
		ParentID:         parent.ID,
		ChildID:          &child.ID,
		Title:            "Make your bed",
		RewardStars:      5,
		RequiresApproval: true,
	}); err != nil {
		logger.Log.Fatal("failed to seed task", zap.Error(err))
	}

	logger.Log.Info("seeded demo family",
		zap.String("parent", parentAccount),
		zap.String("child", childAccount),
		zap.String("password", seedPassword))
}
