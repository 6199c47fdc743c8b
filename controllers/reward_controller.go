package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fixkit/techrewards/models"
	"github.com/fixkit/techrewards/utils"
)

var errInsufficientPoints = errors.New("insufficient points")

// RewardController serves the reward catalogue and redemptions.
type RewardController struct {
	db *gorm.DB
}

// NewRewardController creates a new controller instance.
func NewRewardController(db *gorm.DB) *RewardController {
	return &RewardController{db: db}
}

// ListRewards returns active catalogue entries.
func (r *RewardController) ListRewards(ctx *gin.Context) {
	var rewards []models.Reward
	if err := r.db.Where("is_active = ?", true).Order("cost_points ASC").Find(&rewards).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list rewards")
		return
	}
	utils.Success(ctx, gin.H{"items": rewards})
}

// Redeem spends points on a reward. The REDEMPTION append, the balance
// recomputation and the badge recompute commit together; the balance check
// runs against the ledger under a row lock so concurrent redemptions cannot
// overspend.
func (r *RewardController) Redeem(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	rewardID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid reward id")
		return
	}

	var reward models.Reward
	if err := r.db.First(&reward, uint(rewardID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "reward not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load reward")
		return
	}
	if !reward.IsActive {
		utils.Error(ctx, http.StatusNotFound, 40441, "reward no longer available")
		return
	}

	var newBalance int
	err = r.db.WithContext(context.Background()).Transaction(func(tx *gorm.DB) error {
		// sqlite has no row locks and serializes writes on its own.
		q := tx
		if tx.Dialector.Name() == "mysql" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var user models.User
		if err := q.First(&user, userID).Error; err != nil {
			return err
		}

		balance, err := models.RecomputeBalance(tx, userID)
		if err != nil {
			return err
		}
		if balance < reward.CostPoints {
			return errInsufficientPoints
		}

		metadata := map[string]any{"reward_id": reward.ID, "reward_name": reward.Name}
		if _, err := models.AppendTransaction(tx, userID, models.TransactionRedemption, reward.CostPoints, "redeemed: "+reward.Name, metadata); err != nil {
			return err
		}

		newBalance, err = models.SyncUserBalance(tx, userID)
		if err != nil {
			return err
		}

		return models.RecomputeUserBadges(tx, userID)
	})

	if err != nil {
		if errors.Is(err, errInsufficientPoints) {
			utils.Respond(ctx, http.StatusConflict, 40940, "INSUFFICIENT_POINTS", gin.H{
				"accepted": false,
				"reason":   "INSUFFICIENT_POINTS",
				"detail":   "point balance is lower than the reward cost",
			})
			return
		}
		utils.Sugar.Errorw("redemption failed", "user_id", userID, "reward_id", reward.ID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to redeem reward")
		return
	}

	utils.Success(ctx, gin.H{
		"accepted":    true,
		"rewardName":  reward.Name,
		"pointsSpent": reward.CostPoints,
		"newBalance":  newBalance,
	})
}

// Transactions returns the caller's ledger entries, newest first.
func (r *RewardController) Transactions(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var entries []models.Transaction
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(100).
		Find(&entries).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to list transactions")
		return
	}
	utils.Success(ctx, gin.H{"items": entries})
}
