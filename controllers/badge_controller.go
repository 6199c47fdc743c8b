package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fixkit/techrewards/models"
	"github.com/fixkit/techrewards/utils"
)

// BadgeController serves the badge catalogue and per-user awards.
type BadgeController struct {
	db *gorm.DB
}

func NewBadgeController(db *gorm.DB) *BadgeController {
	return &BadgeController{db: db}
}

// ListBadges returns all active badges with their thresholds.
func (b *BadgeController) ListBadges(ctx *gin.Context) {
	var badges []models.Badge
	if err := b.db.Where("is_active = ?", true).Order("id ASC").Find(&badges).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list badges")
		return
	}
	utils.Success(ctx, gin.H{"items": badges})
}

// MyBadges returns the badges the caller has earned.
func (b *BadgeController) MyBadges(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var earned []models.UserBadge
	if err := b.db.Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at ASC").
		Find(&earned).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list earned badges")
		return
	}
	utils.Success(ctx, gin.H{"items": earned})
}
