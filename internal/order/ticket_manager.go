package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"roomdine-order-service/internal/pos"
)

// RoomTicketManager runs the open-ticket lifecycle: the POS holds the
// authoritative running bill, one open ticket per room, and every item is
// forwarded to the provider the moment a guest orders it. Local rows mirror
// the ticket for history and the kitchen feed.
type RoomTicketManager struct {
	pool     TxBeginner
	newStore NewStore
	store    Store
	provider pos.Client
	logger   *zap.Logger
}

func NewRoomTicketManager(pool TxBeginner, newStore NewStore, store Store,
	provider pos.Client, logger *zap.Logger) *RoomTicketManager {
	return &RoomTicketManager{
		pool:     pool,
		newStore: newStore,
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// CreateOrder opens the room's ticket on demand and appends the requested
// items to it, on the provider first and in the local mirror after. The
// row lock on the open ticket serializes concurrent requests for one room,
// and the partial unique index on open tickets backstops creation races.
func (m *RoomTicketManager) CreateOrder(ctx context.Context, req CreateOrderRequest) (OrderResult, error) {
	if err := validateRequest(req); err != nil {
		return OrderResult{}, err
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return OrderResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := m.newStore(tx)

	items, total, err := m.resolveItems(ctx, store, req.Items)
	if err != nil {
		return OrderResult{}, err
	}

	ticket, err := store.OpenTicketForUpdate(ctx, req.RoomNumber)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		ticket, err = m.openTicket(ctx, store, req)
		if err != nil {
			return OrderResult{}, err
		}
	case err != nil:
		return OrderResult{}, fmt.Errorf("lock open ticket: %w", err)
	}

	if err := m.provider.AppendTicketItems(ctx, ticket.PosTicketRef, items); err != nil {
		return OrderResult{}, err
	}

	for _, item := range items {
		unit := item.Price
		if err := store.InsertLine(ctx, InsertLineParams{
			TicketID:    pgtype.Int8{Int64: ticket.ID, Valid: true},
			SessionID:   req.SessionID,
			PosItemID:   item.ItemID,
			ProductName: item.Name,
			UnitPrice:   unit,
			Quantity:    item.Quantity,
			Subtotal:    unit.Mul(decimal.NewFromInt32(item.Quantity)),
			Note:        item.Note,
		}); err != nil {
			return OrderResult{}, fmt.Errorf("mirror ticket line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return OrderResult{}, fmt.Errorf("commit ticket items: %w", err)
	}

	m.logger.Info("items added to room ticket",
		zap.Int64("ticketId", ticket.ID),
		zap.String("room", req.RoomNumber),
		zap.String("posTicketRef", ticket.PosTicketRef),
		zap.Int("items", len(items)))

	return OrderResult{
		Mode:         ModeOpenTicket,
		TicketID:     ticket.ID,
		PosTicketRef: ticket.PosTicketRef,
		SessionID:    req.SessionID,
		Total:        total,
	}, nil
}

func (m *RoomTicketManager) openTicket(ctx context.Context, store Store, req CreateOrderRequest) (Ticket, error) {
	ref, err := m.provider.CreateTicket(ctx, req.RoomNumber, req.GuestName)
	if err != nil {
		return Ticket{}, err
	}

	id, err := store.InsertTicket(ctx, InsertTicketParams{
		RoomNumber:      req.RoomNumber,
		PosTicketRef:    ref,
		GuestName:       req.GuestName,
		MessagingUserID: req.MessagingUserID,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// The unique index caught a racing ticket for this room. The
			// provider-side ticket just created is now orphaned; surface the
			// race instead of guessing which ticket wins.
			return Ticket{}, fmt.Errorf("concurrent ticket creation for room %s: %w", req.RoomNumber, err)
		}
		return Ticket{}, fmt.Errorf("insert room ticket: %w", err)
	}

	m.logger.Info("room ticket opened",
		zap.Int64("ticketId", id),
		zap.String("room", req.RoomNumber),
		zap.String("posTicketRef", ref))

	return Ticket{
		ID:              id,
		RoomNumber:      req.RoomNumber,
		PosTicketRef:    ref,
		GuestName:       req.GuestName,
		MessagingUserID: req.MessagingUserID,
		Status:          TicketOpen,
	}, nil
}

// resolveItems builds the provider payload. Items referencing the local
// catalog take their name and price from it; pass-through items keep what the
// caller sent because the provider owns pricing in this mode.
func (m *RoomTicketManager) resolveItems(ctx context.Context, store Store, items []RequestItem) ([]pos.TicketItem, decimal.Decimal, error) {
	out := make([]pos.TicketItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		ti := pos.TicketItem{
			ItemID:   item.PosItemID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Note:     item.Note,
		}
		if item.ProductID > 0 {
			product, err := store.ProductByID(ctx, item.ProductID)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, decimal.Zero, &UnknownProductError{Ref: fmt.Sprintf("%d", item.ProductID)}
			}
			if err != nil {
				return nil, decimal.Zero, fmt.Errorf("load product: %w", err)
			}
			ti.ItemID = product.PosItemID
			ti.Name = product.Name
			ti.Price = product.Price
		}
		if ti.ItemID == "" {
			return nil, decimal.Zero, ErrProductNotFound
		}
		total = total.Add(ti.Price.Mul(decimal.NewFromInt32(ti.Quantity)))
		out = append(out, ti)
	}
	return out, total, nil
}

// Checkout closes the room's open ticket on the provider and locally. A room
// without an open ticket checks out cleanly; there is simply nothing to close.
func (m *RoomTicketManager) Checkout(ctx context.Context, roomNumber string) (int64, error) {
	if roomNumber == "" {
		return 0, ErrMissingRoom
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := m.newStore(tx)

	ticket, err := store.OpenTicketForUpdate(ctx, roomNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lock open ticket: %w", err)
	}

	if err := m.provider.CloseTicket(ctx, ticket.PosTicketRef); err != nil {
		return 0, err
	}

	closed, err := store.CloseOpenTicket(ctx, roomNumber)
	if err != nil {
		return 0, fmt.Errorf("close ticket: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit checkout: %w", err)
	}

	m.logger.Info("room ticket closed",
		zap.Int64("ticketId", ticket.ID),
		zap.String("room", roomNumber),
		zap.String("posTicketRef", ticket.PosTicketRef))
	return closed, nil
}

// ActiveTicket returns the room's open ticket with its mirrored lines.
func (m *RoomTicketManager) ActiveTicket(ctx context.Context, roomNumber string) (Ticket, []OrderLine, error) {
	if roomNumber == "" {
		return Ticket{}, nil, ErrMissingRoom
	}
	ticket, err := m.store.OpenTicketByRoom(ctx, roomNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ticket{}, nil, ErrTicketNotFound
	}
	if err != nil {
		return Ticket{}, nil, err
	}
	lines, err := m.store.TicketLines(ctx, ticket.ID)
	return ticket, lines, err
}

// TicketsByRoom returns the room's tickets, newest first, lines included.
func (m *RoomTicketManager) TicketsByRoom(ctx context.Context, roomNumber string) ([]Ticket, map[int64][]OrderLine, error) {
	if roomNumber == "" {
		return nil, nil, ErrMissingRoom
	}
	tickets, err := m.store.TicketsByRoom(ctx, roomNumber)
	if err != nil {
		return nil, nil, err
	}
	lines := make(map[int64][]OrderLine, len(tickets))
	for _, t := range tickets {
		ls, err := m.store.TicketLines(ctx, t.ID)
		if err != nil {
			return nil, nil, err
		}
		lines[t.ID] = ls
	}
	return tickets, lines, nil
}
