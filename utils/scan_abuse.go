package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fixkit/techrewards/config"
)

func scanAbuseKey(parts ...string) string {
	out := "scanabuse"
	for _, p := range parts {
		out += ":" + p
	}
	return out
}

// ScanCooldownTry enforces a short cooldown between scan submissions per IP.
// Fail-open: a Redis problem never blocks a legitimate scan.
func ScanCooldownTry(ip string) bool {
	cfg := config.Get()
	sec := cfg.ScanAttemptCooldownSec
	if sec <= 0 {
		return true
	}
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := scanAbuseKey("cooldown", ip)
	ok, err := cli.SetNX(ctx, key, "1", time.Duration(sec)*time.Second).Result()
	if err != nil {
		return true
	}
	return ok
}

// ScanDailyLimitCheck allows up to N accepted scans per day per IP.
func ScanDailyLimitCheck(ip string) bool {
	cfg := config.Get()
	limit := cfg.ScanMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := scanAbuseKey("day", ip, time.Now().Format("20060102"))
	n, err := cli.Get(ctx, key).Int()
	if err == redis.Nil {
		n = 0
	} else if err != nil {
		return true
	}
	return n < limit
}

// ScanDailyIncrement increments the accepted-scan counter for today.
func ScanDailyIncrement(ip string) {
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := scanAbuseKey("day", ip, time.Now().Format("20060102"))
	if err := cli.Incr(ctx, key).Err(); err == nil {
		// The key is named after the local date, so it must expire at local
		// midnight, not at a UTC day boundary.
		_ = cli.Expire(ctx, key, untilLocalMidnight(time.Now())).Err()
	}
}

// untilLocalMidnight returns the time left until the next local midnight.
func untilLocalMidnight(now time.Time) time.Duration {
	now = now.In(time.Local)
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return next.Sub(now)
}

// ScanRejectRecord increments the rejected-scan counter per hour; returns the
// current count so callers can decide whether to ban.
func ScanRejectRecord(ip string) int {
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := scanAbuseKey("rejhour", ip, time.Now().Format("2006010215"))
	n, err := cli.Incr(ctx, key).Result()
	if err != nil {
		return 0
	}
	_ = cli.Expire(ctx, key, time.Hour).Err()
	return int(n)
}

// ScanIsBanned checks temporary ban status for IP.
func ScanIsBanned(ip string) bool {
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := scanAbuseKey("ban", ip)
	exists, err := cli.Exists(ctx, key).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

// ScanBan sets a temporary ban for IP.
func ScanBan(ip string) {
	cfg := config.Get()
	minutes := cfg.ScanTempBanMinutes
	if minutes <= 0 {
		minutes = 60
	}
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := scanAbuseKey("ban", ip)
	_ = cli.Set(ctx, key, fmt.Sprintf("ban-%s", ip), time.Duration(minutes)*time.Minute).Err()
}
