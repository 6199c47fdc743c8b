package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fixkit/techrewards/models"
)

func setupRewardRouter(t *testing.T, db *gorm.DB, user *models.User) *gin.Engine {
	t.Helper()
	rc := NewRewardController(db)
	r := gin.New()
	r.GET("/api/v1/rewards", rc.ListRewards)
	auth := r.Group("", authAs(user))
	auth.POST("/api/v1/rewards/:id/redeem", rc.Redeem)
	auth.GET("/api/v1/users/me/transactions", rc.Transactions)
	return r
}

func seedBalance(t *testing.T, db *gorm.DB, userID uint, points int) {
	t.Helper()
	_, err := models.AppendTransaction(db, userID, models.TransactionEarning, points, "seed", nil)
	require.NoError(t, err)
	_, err = models.SyncUserBalance(db, userID)
	require.NoError(t, err)
}

func TestListRewardsActiveOnly(t *testing.T) {
	db := testDB(t)
	user := testInstaller(t, db, "alice")
	r := setupRewardRouter(t, db, user)

	active := models.Reward{Name: "Tool Bag", CostPoints: 40, IsActive: true}
	retired := models.Reward{Name: "Old Cap", CostPoints: 10}
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&retired).Error)
	// Zero-value booleans fall back to the column default on insert.
	require.NoError(t, db.Model(&retired).Update("is_active", false).Error)

	w := httpDo(r, "GET", "/api/v1/rewards", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Items []models.Reward `json:"items"`
	}
	require.NoError(t, jsonUnmarshal(decodeEnvelope(t, w).Data, &data))
	require.Len(t, data.Items, 1)
	require.Equal(t, "Tool Bag", data.Items[0].Name)
}

func TestRedeemHappyPath(t *testing.T) {
	db := testDB(t)
	user := testInstaller(t, db, "alice")
	r := setupRewardRouter(t, db, user)
	seedBalance(t, db, user.ID, 100)

	reward := models.Reward{Name: "Tool Bag", CostPoints: 40, IsActive: true}
	require.NoError(t, db.Create(&reward).Error)

	w := httpDo(r, "POST", fmt.Sprintf("/api/v1/rewards/%d/redeem", reward.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Accepted    bool   `json:"accepted"`
		RewardName  string `json:"rewardName"`
		PointsSpent int    `json:"pointsSpent"`
		NewBalance  int    `json:"newBalance"`
	}
	require.NoError(t, jsonUnmarshal(decodeEnvelope(t, w).Data, &data))
	require.True(t, data.Accepted)
	require.Equal(t, "Tool Bag", data.RewardName)
	require.Equal(t, 40, data.PointsSpent)
	require.Equal(t, 60, data.NewBalance)

	var entry models.Transaction
	require.NoError(t, db.Where("user_id = ? AND kind = ?", user.ID, models.TransactionRedemption).First(&entry).Error)
	require.Equal(t, 40, entry.Amount)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	require.Equal(t, 60, got.Points)
}

func TestRedeemInsufficientPoints(t *testing.T) {
	db := testDB(t)
	user := testInstaller(t, db, "alice")
	r := setupRewardRouter(t, db, user)
	seedBalance(t, db, user.ID, 30)

	reward := models.Reward{Name: "Tool Bag", CostPoints: 40, IsActive: true}
	require.NoError(t, db.Create(&reward).Error)

	w := httpDo(r, "POST", fmt.Sprintf("/api/v1/rewards/%d/redeem", reward.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var data struct {
		Accepted bool   `json:"accepted"`
		Reason   string `json:"reason"`
	}
	require.NoError(t, jsonUnmarshal(decodeEnvelope(t, w).Data, &data))
	require.False(t, data.Accepted)
	require.Equal(t, "INSUFFICIENT_POINTS", data.Reason)

	// No redemption row, balance untouched.
	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("user_id = ? AND kind = ?", user.ID, models.TransactionRedemption).
		Count(&count).Error)
	require.Zero(t, count)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	require.Equal(t, 30, got.Points)
}

func TestRedeemUnknownReward(t *testing.T) {
	db := testDB(t)
	user := testInstaller(t, db, "alice")
	r := setupRewardRouter(t, db, user)
	seedBalance(t, db, user.ID, 100)

	w := httpDo(r, "POST", "/api/v1/rewards/9999/redeem", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedeemRetiredReward(t *testing.T) {
	db := testDB(t)
	user := testInstaller(t, db, "alice")
	r := setupRewardRouter(t, db, user)
	seedBalance(t, db, user.ID, 100)

	reward := models.Reward{Name: "Old Cap", CostPoints: 10}
	require.NoError(t, db.Create(&reward).Error)
	require.NoError(t, db.Model(&reward).Update("is_active", false).Error)

	w := httpDo(r, "POST", fmt.Sprintf("/api/v1/rewards/%d/redeem", reward.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransactionsListsLedger(t *testing.T) {
	db := testDB(t)
	user := testInstaller(t, db, "alice")
	r := setupRewardRouter(t, db, user)
	seedBalance(t, db, user.ID, 100)

	_, err := models.AppendTransaction(db, user.ID, models.TransactionRedemption, 25, "redeemed: Tool Bag", nil)
	require.NoError(t, err)

	w := httpDo(r, "GET", "/api/v1/users/me/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Items []models.Transaction `json:"items"`
	}
	require.NoError(t, jsonUnmarshal(decodeEnvelope(t, w).Data, &data))
	require.Len(t, data.Items, 2)
}
