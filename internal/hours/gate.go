package hours

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// FailOpen is the policy for configuration defects: a missing or unparseable
// time never blocks ordering. Changing this to fail closed is a commercial
// behavior change, so it is an explicit constant rather than an implicit zero
// value buried in parsing code.
const FailOpen = true

// Schedule is the resolved default business-hours document. Days off use
// English weekday names ("Monday", ...), matched case-insensitively.
type Schedule struct {
	DefaultOpen  string
	DefaultClose string
	DaysOff      []string
}

// CategoryHours is the single row the gate reads per call.
type CategoryHours struct {
	Active        bool
	OpenOrderTime pgtype.Text
	LastOrderTime pgtype.Text
}

type CategoryStore interface {
	CategoryHours(ctx context.Context, categoryID int64) (CategoryHours, error)
}

// Gate answers "does this category accept orders right now". It is side-effect
// free and performs exactly one row fetch, so it is safe on every order line.
type Gate struct {
	store    CategoryStore
	schedule Schedule
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

func NewGate(store CategoryStore, schedule Schedule, loc *time.Location, logger *zap.Logger) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{store: store, schedule: schedule, loc: loc, now: time.Now, logger: logger}
}

// WithClock fixes the gate's clock. Tests only.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

func (g *Gate) IsCategoryOpen(ctx context.Context, categoryID int64) bool {
	ch, err := g.store.CategoryHours(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false
		}
		// Store failure is treated like a configuration defect, not a closure.
		g.logger.Warn("business hours lookup failed, failing open",
			zap.Int64("categoryId", categoryID), zap.Error(err))
		return FailOpen
	}

	if !ch.Active {
		return false
	}

	now := g.now().In(g.loc)
	nowMin := now.Hour()*60 + now.Minute()

	// A category override replaces the default schedule entirely.
	if textSet(ch.OpenOrderTime) || textSet(ch.LastOrderTime) {
		return overrideOpen(ch.OpenOrderTime.String, ch.LastOrderTime.String, nowMin)
	}

	weekday := now.Weekday().String()
	for _, off := range g.schedule.DaysOff {
		if strings.EqualFold(strings.TrimSpace(off), weekday) {
			return false
		}
	}

	openMin, okOpen := parseMinutes(g.schedule.DefaultOpen)
	closeMin, okClose := parseMinutes(g.schedule.DefaultClose)
	if !okOpen || !okClose {
		return FailOpen
	}
	return windowOpen(nowMin, openMin, closeMin)
}

func overrideOpen(openRaw, closeRaw string, nowMin int) bool {
	openMin, okOpen := parseMinutes(openRaw)
	closeMin, okClose := parseMinutes(closeRaw)

	switch {
	case okOpen && okClose:
		return windowOpen(nowMin, openMin, closeMin)
	case okOpen:
		return nowMin >= openMin
	case okClose:
		return nowMin < closeMin
	default:
		return FailOpen
	}
}

// windowOpen evaluates the three window shapes in minutes since midnight:
// equal bounds mean always open, and open > close is a window crossing
// midnight.
func windowOpen(nowMin, openMin, closeMin int) bool {
	switch {
	case openMin == closeMin:
		return true
	case openMin < closeMin:
		return nowMin >= openMin && nowMin < closeMin
	default:
		return nowMin >= openMin || nowMin < closeMin
	}
}

// parseMinutes accepts "HH:MM" or "HH:MM:SS".
func parseMinutes(raw string) (int, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false
	}
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return 0, false
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, false
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

func textSet(t pgtype.Text) bool {
	return t.Valid && strings.TrimSpace(t.String) != ""
}

// PgStore reads category hours straight off the products schema.
type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) CategoryHours(ctx context.Context, categoryID int64) (CategoryHours, error) {
	var ch CategoryHours
	err := s.db.QueryRow(ctx, `
		select is_active, open_order_time, last_order_time
		from categories
		where id = $1
	`, categoryID).Scan(&ch.Active, &ch.OpenOrderTime, &ch.LastOrderTime)
	return ch, err
}
