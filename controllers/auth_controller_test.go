package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fixkit/techrewards/models"
)

func setupAuthRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	ac := NewAuthController(db)
	r := gin.New()
	r.POST("/api/v1/auth/register", ac.Register)
	r.POST("/api/v1/auth/login", ac.Login)
	return r
}

func TestRegisterAndLogin(t *testing.T) {
	db := testDB(t)
	r := setupAuthRouter(t, db)

	w := httpDo(r, "POST", "/api/v1/auth/register", gin.H{
		"username": "Alice", "email": "alice@example.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Stored lowercase, hashed password.
	var user models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&user).Error)
	require.NotEqual(t, "s3cret-pass", user.PasswordHash)
	require.Equal(t, models.RoleInstaller, user.Role)

	w = httpDo(r, "POST", "/api/v1/auth/login", gin.H{"username": "alice", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, jsonUnmarshal(decodeEnvelope(t, w).Data, &data))
	require.NotEmpty(t, data.Token)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := testDB(t)
	r := setupAuthRouter(t, db)

	payload := gin.H{"username": "alice", "email": "alice@example.com", "password": "s3cret-pass"}
	w := httpDo(r, "POST", "/api/v1/auth/register", payload)
	require.Equal(t, http.StatusOK, w.Code)

	w = httpDo(r, "POST", "/api/v1/auth/register", payload)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, 40910, decodeEnvelope(t, w).Code)
}

func TestLoginWrongPassword(t *testing.T) {
	db := testDB(t)
	r := setupAuthRouter(t, db)

	w := httpDo(r, "POST", "/api/v1/auth/register", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = httpDo(r, "POST", "/api/v1/auth/login", gin.H{"username": "alice", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeReportsLedgerDerivedBalance(t *testing.T) {
	db := testDB(t)
	user := testInstaller(t, db, "alice")
	ac := NewAuthController(db)
	r := gin.New()
	r.GET("/api/v1/users/me", authAs(user), ac.Me)

	for i := 0; i < 3; i++ {
		_, err := models.AppendTransaction(db, user.ID, models.TransactionEarning, 50, "scan", nil)
		require.NoError(t, err)
	}
	_, err := models.AppendTransaction(db, user.ID, models.TransactionRedemption, 30, "redeem", nil)
	require.NoError(t, err)

	w := httpDo(r, "GET", "/api/v1/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Points   int `json:"points"`
		Level    int `json:"level"`
		Installs int `json:"installs"`
	}
	require.NoError(t, jsonUnmarshal(decodeEnvelope(t, w).Data, &data))
	require.Equal(t, 120, data.Points)
	require.Equal(t, 2, data.Level)
	require.Equal(t, 3, data.Installs)
}
