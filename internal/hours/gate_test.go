package hours

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

type mockCategoryStore struct {
	hours CategoryHours
	err   error
}

func (m *mockCategoryStore) CategoryHours(ctx context.Context, categoryID int64) (CategoryHours, error) {
	return m.hours, m.err
}

func text(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: true}
}

func gateAt(store *mockCategoryStore, schedule Schedule, clock string) *Gate {
	g := NewGate(store, schedule, time.UTC, zap.NewNop())
	// Monday 2026-08-31 used throughout unless the case says otherwise.
	at, _ := time.Parse("2006-01-02 15:04", "2026-08-31 "+clock)
	return g.WithClock(func() time.Time { return at })
}

func TestIsCategoryOpenDefaultWindow(t *testing.T) {
	schedule := Schedule{DefaultOpen: "09:00", DefaultClose: "21:00"}
	store := &mockCategoryStore{hours: CategoryHours{Active: true}}

	cases := []struct {
		name  string
		clock string
		want  bool
	}{
		{"before open", "08:59", false},
		{"at open", "09:00", true},
		{"mid window", "12:30", true},
		{"at close is closed", "21:00", false},
		{"after close", "23:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := gateAt(store, schedule, tc.clock).IsCategoryOpen(context.Background(), 1); got != tc.want {
				t.Fatalf("expected %v at %s, got %v", tc.want, tc.clock, got)
			}
		})
	}
}

func TestIsCategoryOpenCrossesMidnight(t *testing.T) {
	schedule := Schedule{DefaultOpen: "22:00", DefaultClose: "02:00"}
	store := &mockCategoryStore{hours: CategoryHours{Active: true}}

	cases := []struct {
		clock string
		want  bool
	}{
		{"23:30", true},
		{"01:00", true},
		{"10:00", false},
		{"22:00", true},
		{"02:00", false},
	}
	for _, tc := range cases {
		if got := gateAt(store, schedule, tc.clock).IsCategoryOpen(context.Background(), 1); got != tc.want {
			t.Fatalf("at %s expected %v, got %v", tc.clock, tc.want, got)
		}
	}
}

func TestIsCategoryOpenEqualBoundsAlwaysOpen(t *testing.T) {
	schedule := Schedule{DefaultOpen: "00:00", DefaultClose: "00:00"}
	store := &mockCategoryStore{hours: CategoryHours{Active: true}}
	if !gateAt(store, schedule, "03:17").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("open == close must mean always open")
	}
}

func TestIsCategoryOpenOverrideWindow(t *testing.T) {
	// Category override replaces the default schedule entirely.
	schedule := Schedule{DefaultOpen: "00:00", DefaultClose: "00:00"}
	store := &mockCategoryStore{hours: CategoryHours{
		Active:        true,
		OpenOrderTime: text("11:00"),
		LastOrderTime: text("14:00"),
	}}

	cases := []struct {
		clock string
		want  bool
	}{
		{"13:59", true},
		{"14:00", false},
		{"10:59", false},
		{"11:00", true},
	}
	for _, tc := range cases {
		if got := gateAt(store, schedule, tc.clock).IsCategoryOpen(context.Background(), 7); got != tc.want {
			t.Fatalf("override at %s expected %v, got %v", tc.clock, tc.want, got)
		}
	}
}

func TestIsCategoryOpenSingleBoundOverride(t *testing.T) {
	schedule := Schedule{DefaultOpen: "09:00", DefaultClose: "10:00"}

	lastOnly := &mockCategoryStore{hours: CategoryHours{Active: true, LastOrderTime: text("14:00")}}
	if !gateAt(lastOnly, schedule, "12:00").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("last-order-only override should be open before the bound")
	}
	if gateAt(lastOnly, schedule, "15:00").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("last-order-only override should be closed after the bound")
	}

	openOnly := &mockCategoryStore{hours: CategoryHours{Active: true, OpenOrderTime: text("18:00")}}
	if gateAt(openOnly, schedule, "17:00").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("open-only override should be closed before the bound")
	}
	if !gateAt(openOnly, schedule, "19:00").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("open-only override should be open after the bound")
	}
}

func TestIsCategoryOpenDaysOff(t *testing.T) {
	// 2026-08-31 is a Monday.
	schedule := Schedule{DefaultOpen: "09:00", DefaultClose: "21:00", DaysOff: []string{"monday"}}
	store := &mockCategoryStore{hours: CategoryHours{Active: true}}
	if gateAt(store, schedule, "12:00").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("day off must close the default schedule")
	}

	// An override ignores days off.
	override := &mockCategoryStore{hours: CategoryHours{
		Active:        true,
		OpenOrderTime: text("11:00"),
		LastOrderTime: text("14:00"),
	}}
	if !gateAt(override, schedule, "12:00").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("override should apply even on a default day off")
	}
}

func TestIsCategoryOpenInactiveCategory(t *testing.T) {
	schedule := Schedule{DefaultOpen: "00:00", DefaultClose: "00:00"}
	store := &mockCategoryStore{hours: CategoryHours{Active: false}}
	if gateAt(store, schedule, "12:00").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("inactive category must be closed")
	}
}

func TestIsCategoryOpenFailOpenPolicy(t *testing.T) {
	store := &mockCategoryStore{hours: CategoryHours{Active: true}}

	// Unparseable default schedule.
	broken := Schedule{DefaultOpen: "not-a-time", DefaultClose: "21:00"}
	if !gateAt(store, broken, "03:00").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("unparseable schedule must fail open")
	}

	// Unparseable override.
	badOverride := &mockCategoryStore{hours: CategoryHours{
		Active:        true,
		OpenOrderTime: text("25:99"),
	}}
	if !gateAt(badOverride, Schedule{DefaultOpen: "09:00", DefaultClose: "10:00"}, "03:00").
		IsCategoryOpen(context.Background(), 1) {
		t.Fatal("unparseable override must fail open")
	}

	// Store errors fail open; a missing category does not.
	storeErr := &mockCategoryStore{err: errors.New("connection reset")}
	if !gateAt(storeErr, Schedule{}, "03:00").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("store error must fail open")
	}
	missing := &mockCategoryStore{err: pgx.ErrNoRows}
	if gateAt(missing, Schedule{}, "03:00").IsCategoryOpen(context.Background(), 1) {
		t.Fatal("unknown category must be closed")
	}
}
