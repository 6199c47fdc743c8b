package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fixkit/techrewards/models"
)

// ActivityRecorder counts handled API requests per day and route template.
// Best-effort; a failed upsert never affects the response.
func ActivityRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 500 {
			return
		}

		// FullPath gives the route template (/api/v1/scan, not per-unit URLs),
		// keeping cardinality bounded. Empty for unmatched routes.
		route := c.FullPath()
		if route == "" || route == "/health" {
			return
		}

		now := time.Now().In(time.Local)
		localMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		// Atomic upsert to avoid duplicate key errors under concurrency
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "route"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.ActivityStat{Date: localMidnight, Route: route, Count: 1}).Error
	}
}
