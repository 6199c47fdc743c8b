package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fixkit/techrewards/config"
	"github.com/fixkit/techrewards/models"
	"github.com/fixkit/techrewards/utils"
)

// AuthController handles installer accounts and sessions.
type AuthController struct {
	db *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an installer account.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid registration payload")
		return
	}

	username := strings.TrimSpace(strings.ToLower(req.Username))
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to create account")
		return
	}

	user := models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         models.RoleInstaller,
		IsActive:     true,
		Level:        1,
	}
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40910, "username already taken")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to create account")
		return
	}

	utils.Sugar.Infow("installer registered", "user_id", user.ID, "username", user.Username)
	utils.Success(ctx, gin.H{"id": user.ID, "username": user.Username})
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid login payload")
		return
	}

	var user models.User
	err := a.db.Where("username = ?", strings.TrimSpace(strings.ToLower(req.Username))).First(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid username or password")
		return
	}
	if !user.IsActive {
		utils.Error(ctx, http.StatusForbidden, 40310, "account disabled")
		return
	}

	cfg := config.Get()
	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, time.Duration(cfg.JWTExpireHours)*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
			"points":   user.Points,
			"level":    user.Level,
		},
	})
}

// Logout blacklists the presented token for its remaining lifetime.
func (a *AuthController) Logout(ctx *gin.Context) {
	header := ctx.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		utils.Error(ctx, http.StatusBadRequest, 40012, "missing bearer token")
		return
	}

	claims, err := utils.ParseToken(token)
	if err == nil && claims.ExpiresAt != nil {
		utils.BlacklistToken(token, claims.ExpiresAt.Time)
	}
	utils.Success(ctx, gin.H{"loggedOut": true})
}

// Me returns the caller's profile with the ledger-derived balance and
// install count.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "account not found")
		return
	}

	balance, err := models.RecomputeBalance(a.db, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to load balance")
		return
	}
	installs, err := models.EarningCount(a.db, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to load balance")
		return
	}

	utils.Success(ctx, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
		"points":   balance,
		"level":    models.LevelForPoints(balance),
		"installs": installs,
		"joinedAt": user.CreatedAt,
	})
}
