package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fixkit/techrewards/config"
	"github.com/fixkit/techrewards/models"
	"github.com/fixkit/techrewards/utils"
)

// Machine-readable rejection reasons. These are the contract clients branch
// on; message text is for humans only.
const (
	ReasonInvalidFormat       = "INVALID_FORMAT"
	ReasonInvalidUUID         = "INVALID_UUID"
	ReasonAlreadyScanned      = "ALREADY_SCANNED"
	ReasonUnknownUnit         = "UNKNOWN_UNIT"
	ReasonRegistryUnreachable = "REGISTRY_UNREACHABLE"
)

var errAlreadyScanned = errors.New("unit already scanned")

// ScanController handles the scan-to-reward pipeline: parse the scanned
// code, prove it names a real unclaimed unit, grant points exactly once, and
// recompute badges.
type ScanController struct {
	db       *gorm.DB
	registry *utils.RegistryClient
	tracker  *utils.ScanTracker
}

// NewScanController creates a controller with its collaborators injected.
func NewScanController(db *gorm.DB, registry *utils.RegistryClient, tracker *utils.ScanTracker) *ScanController {
	return &ScanController{db: db, registry: registry, tracker: tracker}
}

type submitScanRequest struct {
	Code string `json:"code" binding:"required"`
}

// scanGrant is what a committed grant transaction produced.
type scanGrant struct {
	PointsAwarded int
	NewBalance    int
}

// SubmitScan processes one scan submission.
//
// Pipeline: parse -> advisory dedup -> authoritative dedup -> registry
// validation -> one database transaction covering the ScannedUnit insert,
// the EARNING append, the balance recomputation and the badge recompute.
// Two concurrent submissions for the same unit race on the unit_id unique
// index; exactly one commits, the other maps the duplicate-key error to
// ALREADY_SCANNED.
func (s *ScanController) SubmitScan(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	ip := ctx.ClientIP()
	if utils.ScanIsBanned(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42920, "too many rejected scans, temporarily banned")
		return
	}
	if !utils.ScanCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "scanning too fast, slow down")
		return
	}
	if !utils.ScanDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42922, "daily scan limit reached")
		return
	}

	var req submitScanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.reject(ctx, http.StatusBadRequest, 40020, ReasonInvalidFormat, "request body must carry a scan code")
		return
	}

	unitID, err := utils.ParseScanCode(req.Code)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidUUID) {
			s.rejectCounted(ctx, ip, http.StatusBadRequest, 40021, ReasonInvalidUUID, "code does not carry a version-4 unit identifier")
			return
		}
		s.rejectCounted(ctx, ip, http.StatusBadRequest, 40020, ReasonInvalidFormat, "code does not match any accepted warranty link shape")
		return
	}

	sessionKey := strconv.FormatUint(uint64(userID), 10)

	// Advisory tier: a unit this session already claimed short-circuits
	// before the DB is touched. Never authoritative.
	if s.tracker.AlreadySubmitted(ctx.Request.Context(), sessionKey, unitID) {
		s.reject(ctx, http.StatusConflict, 40920, ReasonAlreadyScanned, "this unit was already claimed in your session")
		return
	}

	// Authoritative pre-check. The insert below still races on the unique
	// index; this only gives clean rejections for the common re-scan case
	// without burning a registry call.
	var existing models.ScannedUnit
	if err := s.db.Where("unit_id = ?", unitID).First(&existing).Error; err == nil {
		s.reject(ctx, http.StatusConflict, 40920, ReasonAlreadyScanned, "this unit has already been claimed")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to check unit claim state")
		return
	}

	// Camera re-detection: the same frame inside the cooldown window is
	// dropped before it burns a registry call. The unit is unclaimed at this
	// point, so this cannot stand in for ALREADY_SCANNED; the client simply
	// retries after the window.
	if s.tracker.SeenRecently(ctx.Request.Context(), sessionKey, unitID) {
		utils.Sugar.Debugw("duplicate frame within cooldown", "user_id", userID, "unit_id", unitID)
		utils.Error(ctx, http.StatusTooManyRequests, 42923, "duplicate scan frame, retry shortly")
		return
	}

	record, err := s.registry.Validate(ctx.Request.Context(), unitID)
	if err != nil {
		if errors.Is(err, utils.ErrUnknownUnit) {
			s.rejectCounted(ctx, ip, http.StatusNotFound, 40420, ReasonUnknownUnit, "unit is not known to the manufacturing registry; retrying will not help")
			return
		}
		s.reject(ctx, http.StatusServiceUnavailable, 50320, ReasonRegistryUnreachable, "manufacturing registry is temporarily unavailable, please retry")
		return
	}

	points := s.rewardAmount(record.ProductName)

	grant, err := s.grant(userID, unitID, record, points)
	if err != nil {
		if errors.Is(err, errAlreadyScanned) {
			s.reject(ctx, http.StatusConflict, 40920, ReasonAlreadyScanned, "this unit has already been claimed")
			return
		}
		utils.Sugar.Errorw("scan grant failed", "user_id", userID, "unit_id", unitID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to record scan reward")
		return
	}

	s.tracker.MarkSubmitted(ctx.Request.Context(), sessionKey, unitID)
	utils.ScanDailyIncrement(ip)

	utils.Sugar.Infow("scan accepted",
		"user_id", userID,
		"unit_id", unitID,
		"matched_by", record.MatchedBy,
		"points", grant.PointsAwarded,
	)

	utils.Success(ctx, gin.H{
		"accepted":      true,
		"productName":   record.ProductName,
		"pointsAwarded": grant.PointsAwarded,
		"newBalance":    grant.NewBalance,
	})
}

// grant runs the atomic unit of the pipeline. It deliberately uses a
// background context: once the grant starts, a client disconnect must not
// leave a ScannedUnit without its Transaction or vice versa.
func (s *ScanController) grant(userID uint, unitID string, record *utils.UnitRecord, points int) (*scanGrant, error) {
	out := &scanGrant{PointsAwarded: points}

	err := s.db.WithContext(context.Background()).Transaction(func(tx *gorm.DB) error {
		unit := models.ScannedUnit{
			UnitID:      unitID,
			UserID:      userID,
			ProductName: record.ProductName,
			ScannedAt:   time.Now(),
		}
		if err := tx.Create(&unit).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyScanned
			}
			return err
		}

		description := "QR scan reward"
		if record.ProductName != nil {
			description = "QR scan reward: " + *record.ProductName
		}
		metadata := map[string]any{
			"unit_id":    unitID,
			"matched_by": record.MatchedBy,
		}
		if record.ProductName != nil {
			metadata["product_name"] = *record.ProductName
		}
		if _, err := models.AppendTransaction(tx, userID, models.TransactionEarning, points, description, metadata); err != nil {
			return err
		}

		balance, err := models.SyncUserBalance(tx, userID)
		if err != nil {
			return err
		}
		out.NewBalance = balance

		return models.RecomputeUserBadges(tx, userID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// rewardAmount applies the per-product override when the resolved product
// has one, else the configured default.
func (s *ScanController) rewardAmount(productName *string) int {
	cfg := config.Get()
	if productName == nil || *productName == "" {
		return cfg.ScanRewardPoints
	}
	var override models.ProductPoint
	if err := s.db.Where("product_name = ?", *productName).First(&override).Error; err == nil && override.Points > 0 {
		return override.Points
	}
	return cfg.ScanRewardPoints
}

// ScanHistory returns the caller's claimed units, newest first.
func (s *ScanController) ScanHistory(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	page, pageSize := 1, 20
	if v := strings.TrimSpace(ctx.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(ctx.Query("page_size")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}

	var total int64
	if err := s.db.Model(&models.ScannedUnit{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to count scans")
		return
	}

	var units []models.ScannedUnit
	if err := s.db.Where("user_id = ?", userID).
		Order("scanned_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&units).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to list scans")
		return
	}

	utils.Success(ctx, gin.H{
		"items": units,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// reject writes a scan rejection with a stable reason code.
func (s *ScanController) reject(ctx *gin.Context, status, code int, reason, detail string) {
	utils.Respond(ctx, status, code, reason, gin.H{
		"accepted": false,
		"reason":   reason,
		"detail":   detail,
	})
}

// rejectCounted additionally feeds the per-IP reject counter and bans
// repeat offenders. Only caller-fault rejections count; registry outages and
// honest re-scans do not.
func (s *ScanController) rejectCounted(ctx *gin.Context, ip string, status, code int, reason, detail string) {
	if n := utils.ScanRejectRecord(ip); n >= config.Get().ScanRejectMaxPerIPPerHr {
		utils.ScanBan(ip)
	}
	s.reject(ctx, status, code, reason, detail)
}
