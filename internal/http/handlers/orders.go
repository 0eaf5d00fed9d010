package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"roomdine-order-service/internal/order"
	"roomdine-order-service/internal/queue"
	"roomdine-order-service/internal/utils"
	"roomdine-order-service/pkg/response"
)

type guestOrderItem struct {
	ProductID int64   `json:"productId"`
	PosItemID string  `json:"posItemId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int32   `json:"quantity"`
	Note      string  `json:"note"`
}

type guestOrderRequest struct {
	RoomNumber      string           `json:"roomNumber"`
	GuestName       string           `json:"guestName"`
	MessagingUserID string           `json:"messagingUserId"`
	Note            string           `json:"note"`
	SessionID       string           `json:"sessionId"`
	Items           []guestOrderItem `json:"items"`
}

type orderLineView struct {
	ID          int64   `json:"id"`
	ProductName string  `json:"productName"`
	UnitPrice   string  `json:"unitPrice"`
	Quantity    int32   `json:"quantity"`
	Subtotal    string  `json:"subtotal"`
	Note        *string `json:"note,omitempty"`
	Status      string  `json:"status"`
}

type orderView struct {
	ID           int64           `json:"id"`
	RoomNumber   string          `json:"roomNumber"`
	GuestName    *string         `json:"guestName,omitempty"`
	Status       string          `json:"status"`
	Total        string          `json:"total"`
	Note         *string         `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	CheckedOutAt *time.Time      `json:"checkedOutAt,omitempty"`
	Items        []orderLineView `json:"items"`
}

func orderToView(o order.Order) orderView {
	v := orderView{
		ID:           o.ID,
		RoomNumber:   o.RoomNumber,
		Status:       o.Status,
		Total:        o.Total.StringFixed(2),
		CreatedAt:    o.CreatedAt,
		CheckedOutAt: o.CheckedOutAt,
		Items:        make([]orderLineView, 0, len(o.Items)),
	}
	if o.GuestName != "" {
		v.GuestName = &o.GuestName
	}
	if o.Note != "" {
		v.Note = &o.Note
	}
	for _, l := range o.Items {
		lv := orderLineView{
			ID:          l.ID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice.StringFixed(2),
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal.StringFixed(2),
			Status:      l.Status,
		}
		if l.Note != "" {
			lv.Note = &l.Note
		}
		v.Items = append(v.Items, lv)
	}
	return v
}

// verifyRoomAccess checks the room session token the messaging layer issued.
func (h *Handler) verifyRoomAccess(r *http.Request, roomNumber string) bool {
	token := strings.TrimSpace(r.Header.Get("X-Room-Token"))
	return utils.VerifyRoomToken(h.Config.RoomTokenSecret, token, roomNumber)
}

// GuestOrderCreate accepts a guest order and dispatches it to whichever
// lifecycle the process runs in.
func (h *Handler) GuestOrderCreate(w http.ResponseWriter, r *http.Request) {
	var req guestOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	req.RoomNumber = strings.TrimSpace(req.RoomNumber)
	if !h.verifyRoomAccess(r, req.RoomNumber) {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid room token")
		return
	}

	items := make([]order.RequestItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, order.RequestItem{
			ProductID: item.ProductID,
			PosItemID: strings.TrimSpace(item.PosItemID),
			Name:      strings.TrimSpace(item.Name),
			Price:     decimal.NewFromFloat(item.Price),
			Quantity:  item.Quantity,
			Note:      strings.TrimSpace(item.Note),
		})
	}

	res, err := h.Orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		RoomNumber:      req.RoomNumber,
		GuestName:       strings.TrimSpace(req.GuestName),
		MessagingUserID: strings.TrimSpace(req.MessagingUserID),
		Note:            strings.TrimSpace(req.Note),
		SessionID:       strings.TrimSpace(req.SessionID),
		Items:           items,
	})
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	eventType := queue.EventOrderCreated
	if res.Mode == order.ModeOpenTicket {
		eventType = queue.EventItemsAdded
	}
	h.Events.Publish(r.Context(), queue.OrderEvent{
		Type:       eventType,
		RoomNumber: req.RoomNumber,
		OrderID:    res.OrderID,
		TicketID:   res.TicketID,
		ItemCount:  len(items),
		Total:      res.Total.StringFixed(2),
	})

	response.Success(w, map[string]any{
		"mode":         res.Mode,
		"orderId":      res.OrderID,
		"ticketId":     res.TicketID,
		"posTicketRef": res.PosTicketRef,
		"sessionId":    res.SessionID,
		"total":        res.Total.StringFixed(2),
	})
}

// GuestOrderHistory lists a room's orders in both modes through the same view.
func (h *Handler) GuestOrderHistory(w http.ResponseWriter, r *http.Request) {
	roomNumber := strings.TrimSpace(readPathString(r, "roomNumber"))
	if !h.verifyRoomAccess(r, roomNumber) {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid room token")
		return
	}

	orders, err := h.Orders.OrdersByRoom(r.Context(), roomNumber)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderToView(o))
	}
	response.Success(w, map[string]any{
		"mode":   h.Orders.Mode(),
		"orders": views,
	})
}

// GuestOrderDetail returns one order (or ticket view) by id.
func (h *Handler) GuestOrderDetail(w http.ResponseWriter, r *http.Request) {
	id, err := readPathInt64(r, "orderId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}

	o, err := h.Orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	if !h.verifyRoomAccess(r, o.RoomNumber) {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid room token")
		return
	}
	response.Success(w, orderToView(o))
}

// FrontDeskCheckout settles a room at checkout. Idempotent; the front desk
// system may retry freely.
func (h *Handler) FrontDeskCheckout(w http.ResponseWriter, r *http.Request) {
	roomNumber := strings.TrimSpace(readPathString(r, "roomNumber"))
	if roomNumber == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Room number is required")
		return
	}

	settled, err := h.Orders.CompleteOrdersOnCheckout(r.Context(), roomNumber)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	if settled > 0 {
		h.Events.Publish(r.Context(), queue.OrderEvent{
			Type:       queue.EventRoomCheckedOut,
			RoomNumber: roomNumber,
		})
	}
	h.Logger.Info("checkout settled", zap.String("room", roomNumber), zap.Int64("settled", settled))
	response.Success(w, map[string]any{"roomNumber": roomNumber, "settled": settled})
}
