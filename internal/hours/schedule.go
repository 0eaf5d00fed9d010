package hours

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type settingsQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scheduleDocument struct {
	DefaultOpen  string   `json:"default_open"`
	DefaultClose string   `json:"default_close"`
	DaysOff      []string `json:"days_off"`
}

// LoadSchedule reads the hotel-wide business hours document from settings.
// Absent or malformed configuration yields the fallback, which keeps ordering
// available.
func LoadSchedule(ctx context.Context, db settingsQuerier, fallback Schedule, logger *zap.Logger) Schedule {
	var raw string
	err := db.QueryRow(ctx,
		`select value from settings where key = 'business_hours'`).Scan(&raw)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			logger.Warn("business hours settings lookup failed, using fallback", zap.Error(err))
		}
		return fallback
	}

	var doc scheduleDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		logger.Warn("business hours settings are not valid json, using fallback", zap.Error(err))
		return fallback
	}

	out := fallback
	if doc.DefaultOpen != "" {
		out.DefaultOpen = doc.DefaultOpen
	}
	if doc.DefaultClose != "" {
		out.DefaultClose = doc.DefaultClose
	}
	if doc.DaysOff != nil {
		out.DaysOff = doc.DaysOff
	}
	return out
}
