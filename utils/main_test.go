package utils

import (
	"os"
	"testing"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("SCAN_ATTEMPT_COOLDOWN_SEC", "-1")
	os.Setenv("SCAN_MAX_PER_IP_PER_DAY", "-1")
	Logger = zap.NewNop()
	Sugar = Logger.Sugar()
	os.Exit(m.Run())
}
