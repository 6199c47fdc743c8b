package main

import (
	"time"

	"github.com/fixkit/techrewards/config"
	"github.com/fixkit/techrewards/models"
	"github.com/fixkit/techrewards/routes"
	"github.com/fixkit/techrewards/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.ScannedUnit{},
		&models.Transaction{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Reward{},
		&models.ProductPoint{},
		&models.ActivityStat{},
	)

	registry := utils.NewRegistryClient(cfg.RegistryBaseURL, time.Duration(cfg.RegistryTimeoutSec)*time.Second)
	tracker := utils.NewScanTracker(
		time.Duration(cfg.ScanCooldownSec)*time.Second,
		time.Duration(cfg.ScanSessionTTLHours)*time.Hour,
	)
	tracker.StartJanitor(10 * time.Minute)

	r := routes.SetupRouter(db, registry, tracker)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
