package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fixkit/techrewards/models"
	"github.com/fixkit/techrewards/utils"
)

// StatsController exposes aggregate counters for the admin dashboard.
type StatsController struct {
	db *gorm.DB
}

func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// Overview returns headline totals.
func (s *StatsController) Overview(ctx *gin.Context) {
	var installers, units, earnings, redemptions int64

	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleInstaller).Count(&installers).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load stats")
		return
	}
	if err := s.db.Model(&models.ScannedUnit{}).Count(&units).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load stats")
		return
	}
	if err := s.db.Model(&models.Transaction{}).Where("kind = ?", models.TransactionEarning).Count(&earnings).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load stats")
		return
	}
	if err := s.db.Model(&models.Transaction{}).Where("kind = ?", models.TransactionRedemption).Count(&redemptions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load stats")
		return
	}

	utils.Success(ctx, gin.H{
		"installers":   installers,
		"scannedUnits": units,
		"earnings":     earnings,
		"redemptions":  redemptions,
	})
}

// Activity returns per-route request counts for the last N days (default 7).
func (s *StatsController) Activity(ctx *gin.Context) {
	days := 7
	if v := ctx.Query("days"); v == "30" {
		days = 30
	}
	now := time.Now().In(time.Local)
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -days)

	var rows []models.ActivityStat
	if err := s.db.Where("date >= ?", since).
		Order("date ASC, route ASC").
		Find(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load activity")
		return
	}
	utils.Success(ctx, gin.H{"items": rows})
}
