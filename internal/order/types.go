package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mode selects the order lifecycle for the whole process. It is read from
// persisted settings exactly once at startup; flipping it requires a restart
// so every request in a process observes the same lifecycle.
type Mode string

const (
	ModeCatalog    Mode = "catalog"
	ModeOpenTicket Mode = "open_ticket"
)

// Order statuses. COMPLETED and CANCELED are terminal.
const (
	StatusOpen      = "OPEN"
	StatusCompleted = "COMPLETED"
	StatusCanceled  = "CANCELED"
	StatusTest      = "TEST"
)

// Room ticket statuses.
const (
	TicketOpen   = "OPEN"
	TicketClosed = "CLOSED"
)

// RequestItem references a product either by local id (catalog mode) or by
// the provider item id with optional name/price passthrough (open-ticket
// mode, where the provider owns pricing).
type RequestItem struct {
	ProductID int64
	PosItemID string
	Name      string
	Price     decimal.Decimal
	Quantity  int32
	Note      string
}

type CreateOrderRequest struct {
	RoomNumber      string
	GuestName       string
	MessagingUserID string
	Note            string
	SessionID       string
	Items           []RequestItem
}

// OrderResult is the uniform outcome of both modes.
type OrderResult struct {
	Mode         Mode
	OrderID      int64
	TicketID     int64
	PosTicketRef string
	SessionID    string
	Total        decimal.Decimal
}

type OrderLine struct {
	ID          int64
	PosItemID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int32
	Subtotal    decimal.Decimal
	Note        string
	Status      string
}

type Order struct {
	ID              int64
	RoomNumber      string
	GuestName       string
	MessagingUserID string
	SessionID       string
	Status          string
	Total           decimal.Decimal
	Note            string
	CreatedAt       time.Time
	CheckedOutAt    *time.Time
	Items           []OrderLine
}

type Ticket struct {
	ID              int64
	RoomNumber      string
	PosTicketRef    string
	GuestName       string
	MessagingUserID string
	Status          string
	CreatedAt       time.Time
	ClosedAt        *time.Time
}
