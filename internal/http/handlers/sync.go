package handlers

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"roomdine-order-service/pkg/response"
)

// CronSyncCategories triggers a category sync outside the scheduler, for
// external cron setups and manual refreshes after menu edits in the POS.
func (h *Handler) CronSyncCategories(w http.ResponseWriter, r *http.Request) {
	res := h.Sync.SyncCategories(r.Context())
	response.Success(w, map[string]any{
		"success": res.Success,
		"message": res.Message,
		"stats":   res.Stats,
	})
}

// CronSyncProducts triggers a product sync. Categories should be synced first
// so new products resolve their category reference.
func (h *Handler) CronSyncProducts(w http.ResponseWriter, r *http.Request) {
	res := h.Sync.SyncProducts(r.Context())
	response.Success(w, map[string]any{
		"success": res.Success,
		"message": res.Message,
		"stats":   res.Stats,
	})
}

type syncStatRow struct {
	Provider string    `json:"provider"`
	Table    string    `json:"table"`
	Added    int       `json:"added"`
	Updated  int       `json:"updated"`
	Skipped  int       `json:"skipped"`
	Errors   int       `json:"errors"`
	Success  bool      `json:"success"`
	Message  *string   `json:"message,omitempty"`
	RunAt    time.Time `json:"runAt"`
}

// SyncStats exposes the last-run snapshot per provider and table.
func (h *Handler) SyncStats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query(r.Context(), `
		select provider, table_name, added, updated, skipped, errors, success, message, run_at
		from sync_stats
		order by provider, table_name
	`)
	if err != nil {
		h.Logger.Error("sync stats query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}
	defer rows.Close()

	stats := make([]syncStatRow, 0)
	for rows.Next() {
		var s syncStatRow
		var message pgtype.Text
		if err := rows.Scan(&s.Provider, &s.Table, &s.Added, &s.Updated, &s.Skipped,
			&s.Errors, &s.Success, &message, &s.RunAt); err != nil {
			h.Logger.Error("sync stats scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
			return
		}
		if message.Valid {
			s.Message = &message.String
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		h.Logger.Error("sync stats iteration failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	response.Success(w, map[string]any{"stats": stats})
}
