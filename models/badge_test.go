package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestBadgeEarnedThresholds(t *testing.T) {
	cases := []struct {
		name  string
		badge Badge
		stats UserStats
		want  bool
	}{
		{"no thresholds always earned", Badge{}, UserStats{}, true},
		{"points met", Badge{MinPoints: intPtr(100)}, UserStats{Points: 100}, true},
		{"points short by one", Badge{MinPoints: intPtr(100)}, UserStats{Points: 99}, false},
		{"installs met", Badge{MinInstalls: intPtr(10)}, UserStats{Installs: 10}, true},
		{"installs short", Badge{MinInstalls: intPtr(10)}, UserStats{Installs: 9}, false},
		{"both required both met", Badge{MinPoints: intPtr(50), MinInstalls: intPtr(5)}, UserStats{Points: 60, Installs: 5}, true},
		{"both required one missing", Badge{MinPoints: intPtr(50), MinInstalls: intPtr(5)}, UserStats{Points: 60, Installs: 4}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, BadgeEarned(tc.badge, tc.stats))
		})
	}
}

func TestEvaluateBadgesReturnsEarnedSubset(t *testing.T) {
	badges := []Badge{
		{ID: 1, Name: "First Install", MinInstalls: intPtr(1), IsActive: true},
		{ID: 2, Name: "Ten Installs", MinInstalls: intPtr(10), IsActive: true},
		{ID: 3, Name: "Century", MinPoints: intPtr(100), IsActive: true},
		// Inactive badges are never earned, whatever the stats.
		{ID: 4, Name: "Retired", MinInstalls: intPtr(1)},
	}

	earned := EvaluateBadges(badges, UserStats{Points: 120, Installs: 3})
	names := make([]string, 0, len(earned))
	for _, b := range earned {
		names = append(names, b.Name)
	}
	require.Equal(t, []string{"First Install", "Century"}, names)
}

func TestRecomputeUserBadgesRebuildsAssignments(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "alice")

	first := Badge{Name: "First Install", MinInstalls: intPtr(1), IsActive: true}
	century := Badge{Name: "Century", MinPoints: intPtr(100), IsActive: true}
	retired := Badge{Name: "Retired", MinInstalls: intPtr(1)}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&century).Error)
	require.NoError(t, db.Create(&retired).Error)
	// Zero-value booleans fall back to the column default on insert.
	require.NoError(t, db.Model(&retired).Update("is_active", false).Error)

	_, err := AppendTransaction(db, user.ID, TransactionEarning, 10, "scan", nil)
	require.NoError(t, err)
	require.NoError(t, RecomputeUserBadges(db, user.ID))

	var assigned []UserBadge
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&assigned).Error)
	require.Len(t, assigned, 1)
	require.Equal(t, first.ID, assigned[0].BadgeID)

	// More earnings push the balance over the Century threshold.
	for i := 0; i < 9; i++ {
		_, err := AppendTransaction(db, user.ID, TransactionEarning, 10, "scan", nil)
		require.NoError(t, err)
	}
	require.NoError(t, RecomputeUserBadges(db, user.ID))

	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&assigned).Error)
	require.Len(t, assigned, 2)

	// Redeeming below the threshold takes the points badge away again.
	_, err = AppendTransaction(db, user.ID, TransactionRedemption, 50, "redeem", nil)
	require.NoError(t, err)
	require.NoError(t, RecomputeUserBadges(db, user.ID))

	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&assigned).Error)
	require.Len(t, assigned, 1)
	require.Equal(t, first.ID, assigned[0].BadgeID)
}

func TestRecomputeUserBadgesIdempotent(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "alice")

	badge := Badge{Name: "First Install", MinInstalls: intPtr(1), IsActive: true}
	require.NoError(t, db.Create(&badge).Error)

	_, err := AppendTransaction(db, user.ID, TransactionEarning, 10, "scan", nil)
	require.NoError(t, err)

	require.NoError(t, RecomputeUserBadges(db, user.ID))
	require.NoError(t, RecomputeUserBadges(db, user.ID))

	var count int64
	require.NoError(t, db.Model(&UserBadge{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestLevelForPoints(t *testing.T) {
	cases := map[int]int{
		0: 1, 99: 1, 100: 2, 499: 2, 500: 3, 1999: 3, 2000: 4, 4999: 4, 5000: 5, 100000: 5,
	}
	for points, level := range cases {
		require.Equal(t, level, LevelForPoints(points), "points=%d", points)
	}
}
