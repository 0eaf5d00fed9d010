package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"roomdine-order-service/pkg/response"
)

type kitchenItem struct {
	ID          int64     `json:"id"`
	RoomNumber  string    `json:"roomNumber"`
	ProductName string    `json:"productName"`
	Quantity    int32     `json:"quantity"`
	Note        *string   `json:"note,omitempty"`
	Status      string    `json:"status"`
	OrderedAt   time.Time `json:"orderedAt"`
}

var kitchenItemStatuses = map[string]struct{}{
	"ordered":   {},
	"preparing": {},
	"delivered": {},
	"canceled":  {},
}

// KitchenActiveItems is the poll fallback for displays without a websocket.
func (h *Handler) KitchenActiveItems(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query(r.Context(), `
		select d.id,
		       coalesce(o.room_number, t.room_number, ''),
		       d.product_name, d.quantity, d.note, d.status, d.created_at
		from order_details d
		left join orders o on o.id = d.order_id
		left join room_tickets t on t.id = d.ticket_id
		where d.status in ('ordered', 'preparing')
		order by d.created_at
	`)
	if err != nil {
		h.Logger.Error("kitchen items query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}
	defer rows.Close()

	items := make([]kitchenItem, 0)
	for rows.Next() {
		var item kitchenItem
		var note pgtype.Text
		if err := rows.Scan(&item.ID, &item.RoomNumber, &item.ProductName,
			&item.Quantity, &note, &item.Status, &item.OrderedAt); err != nil {
			h.Logger.Error("kitchen items scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
			return
		}
		if note.Valid {
			item.Note = &note.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		h.Logger.Error("kitchen items iteration failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	response.Success(w, map[string]any{"items": items})
}

// KitchenItemStatusUpdate moves one line through the kitchen workflow. It
// touches only the preparation status; order totals and billing state belong
// to the order lifecycle and stay untouched.
func (h *Handler) KitchenItemStatusUpdate(w http.ResponseWriter, r *http.Request) {
	itemID, err := readPathInt64(r, "itemId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid item id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if _, ok := kitchenItemStatuses[status]; !ok {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown item status")
		return
	}

	tag, err := h.DB.Exec(r.Context(),
		`update order_details set status = $1 where id = $2`, status, itemID)
	if err != nil {
		h.Logger.Error("kitchen item status update failed",
			zap.Int64("itemId", itemID), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Item not found")
		return
	}

	response.Success(w, map[string]any{"id": itemID, "status": status})
}

// KitchenNotifications lists unacknowledged notification rows, oldest first.
func (h *Handler) KitchenNotifications(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query(r.Context(), `
		select id, event_type, room_number, order_id, ticket_id, message, created_at
		from kitchen_notifications
		where not acknowledged
		order by created_at
		limit 200
	`)
	if err != nil {
		h.Logger.Error("kitchen notifications query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}
	defer rows.Close()

	type notification struct {
		ID         int64     `json:"id"`
		EventType  string    `json:"eventType"`
		RoomNumber string    `json:"roomNumber"`
		OrderID    *int64    `json:"orderId,omitempty"`
		TicketID   *int64    `json:"ticketId,omitempty"`
		Message    string    `json:"message"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	items := make([]notification, 0)
	for rows.Next() {
		var n notification
		var orderID, ticketID pgtype.Int8
		if err := rows.Scan(&n.ID, &n.EventType, &n.RoomNumber, &orderID, &ticketID,
			&n.Message, &n.CreatedAt); err != nil {
			h.Logger.Error("kitchen notifications scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
			return
		}
		if orderID.Valid {
			n.OrderID = &orderID.Int64
		}
		if ticketID.Valid {
			n.TicketID = &ticketID.Int64
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		h.Logger.Error("kitchen notifications iteration failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	response.Success(w, map[string]any{"notifications": items})
}

// KitchenNotificationAck marks a notification handled.
func (h *Handler) KitchenNotificationAck(w http.ResponseWriter, r *http.Request) {
	id, err := readPathInt64(r, "notificationId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid notification id")
		return
	}

	tag, err := h.DB.Exec(r.Context(),
		`update kitchen_notifications set acknowledged = true where id = $1`, id)
	if err != nil {
		h.Logger.Error("kitchen notification ack failed", zap.Int64("id", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Notification not found")
		return
	}
	response.Success(w, map[string]any{"id": id, "acknowledged": true})
}
