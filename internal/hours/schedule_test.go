package hours

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type settingsRow struct {
	value string
	err   error
}

func (r settingsRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if p, ok := dest[0].(*string); ok {
		*p = r.value
	}
	return nil
}

type settingsDB struct {
	value string
	err   error
}

func (s *settingsDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return settingsRow{value: s.value, err: s.err}
}

func TestLoadScheduleParsesDocument(t *testing.T) {
	db := &settingsDB{value: `{"default_open":"08:30","default_close":"21:00","days_off":["Sunday"]}`}
	fallback := Schedule{DefaultOpen: "07:00", DefaultClose: "22:00"}

	got := LoadSchedule(context.Background(), db, fallback, zap.NewNop())

	if got.DefaultOpen != "08:30" || got.DefaultClose != "21:00" {
		t.Fatalf("unexpected schedule: %+v", got)
	}
	if len(got.DaysOff) != 1 || got.DaysOff[0] != "Sunday" {
		t.Fatalf("unexpected days off: %+v", got.DaysOff)
	}
}

func TestLoadScheduleFallsBack(t *testing.T) {
	fallback := Schedule{DefaultOpen: "07:00", DefaultClose: "22:00", DaysOff: []string{"Monday"}}

	cases := []struct {
		name string
		db   *settingsDB
	}{
		{"missing setting", &settingsDB{err: pgx.ErrNoRows}},
		{"store failure", &settingsDB{err: errors.New("connection refused")}},
		{"malformed json", &settingsDB{value: `not-json`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LoadSchedule(context.Background(), tc.db, fallback, zap.NewNop())
			if got.DefaultOpen != fallback.DefaultOpen || got.DefaultClose != fallback.DefaultClose {
				t.Fatalf("expected the fallback schedule, got %+v", got)
			}
			if len(got.DaysOff) != 1 || got.DaysOff[0] != "Monday" {
				t.Fatalf("fallback days off must survive, got %+v", got.DaysOff)
			}
		})
	}
}

func TestLoadSchedulePartialDocumentKeepsFallbackFields(t *testing.T) {
	db := &settingsDB{value: `{"default_close":"23:00"}`}
	fallback := Schedule{DefaultOpen: "07:00", DefaultClose: "22:00"}

	got := LoadSchedule(context.Background(), db, fallback, zap.NewNop())

	if got.DefaultOpen != "07:00" {
		t.Fatalf("unset open bound must keep the fallback, got %q", got.DefaultOpen)
	}
	if got.DefaultClose != "23:00" {
		t.Fatalf("expected the configured close bound, got %q", got.DefaultClose)
	}
}
