package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fixkit/techrewards/middleware"
	"github.com/fixkit/techrewards/models"
	"github.com/fixkit/techrewards/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("SCAN_ATTEMPT_COOLDOWN_SEC", "-1")
	os.Setenv("SCAN_MAX_PER_IP_PER_DAY", "-1")
	os.Setenv("SCAN_REJECT_MAX_PER_IP_PER_HOUR", "1000000")
	gin.SetMode(gin.TestMode)
	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()
	os.Exit(m.Run())
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Per-test in-memory database to avoid cross-test interference
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.ScannedUnit{}, &models.Transaction{},
		&models.Badge{}, &models.UserBadge{}, &models.Reward{},
		&models.ProductPoint{}, &models.ActivityStat{},
	))
	return db
}

func testInstaller(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := models.User{Username: name, Role: models.RoleInstaller, IsActive: true, Level: 1}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

// authAs injects the identity the auth middleware would set after a valid
// token, keeping handler tests independent of JWT plumbing.
func authAs(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, user.ID)
		c.Set(middleware.ContextUsernameKey, user.Username)
		c.Set(middleware.ContextRoleKey, user.Role)
		c.Next()
	}
}

func httpDo(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// envelope mirrors utils.JSONResponse with the data left raw for per-test
// decoding.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func jsonUnmarshal(raw json.RawMessage, v interface{}) error {
	return json.Unmarshal(raw, v)
}
