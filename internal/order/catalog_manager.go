package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"roomdine-order-service/internal/stock"
)

// CategoryGate answers whether a category accepts orders right now.
type CategoryGate interface {
	IsCategoryOpen(ctx context.Context, categoryID int64) bool
}

// Reserver decrements tracked stock inside the caller's transaction.
type Reserver interface {
	Reserve(ctx context.Context, q stock.Querier, productID int64, qty int32) error
}

// CatalogOrderManager runs the local-catalog order lifecycle: items are
// validated against the mirrored catalog, stock is reserved, and lines attach
// to the room's running order for the browsing session. Nothing is sent to
// the provider until checkout settles the bill.
type CatalogOrderManager struct {
	pool     TxBeginner
	newStore NewStore
	store    Store
	ledger   Reserver
	gate     CategoryGate
	logger   *zap.Logger
}

func NewCatalogOrderManager(pool TxBeginner, newStore NewStore, store Store,
	ledger Reserver, gate CategoryGate, logger *zap.Logger) *CatalogOrderManager {
	return &CatalogOrderManager{
		pool:     pool,
		newStore: newStore,
		store:    store,
		ledger:   ledger,
		gate:     gate,
		logger:   logger,
	}
}

func validateRequest(req CreateOrderRequest) error {
	if req.RoomNumber == "" {
		return ErrMissingRoom
	}
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// CreateOrder is all-or-nothing: a closed category or a stock conflict on any
// line rolls back every line and every decrement of the request.
func (m *CatalogOrderManager) CreateOrder(ctx context.Context, req CreateOrderRequest) (OrderResult, error) {
	if err := validateRequest(req); err != nil {
		return OrderResult{}, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return OrderResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := m.newStore(tx)

	orderID, err := store.OpenOrderIDBySession(ctx, req.RoomNumber, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		orderID, err = store.InsertOrder(ctx, InsertOrderParams{
			RoomNumber:      req.RoomNumber,
			GuestName:       req.GuestName,
			MessagingUserID: req.MessagingUserID,
			SessionID:       sessionID,
			Note:            req.Note,
		})
	}
	if err != nil {
		return OrderResult{}, fmt.Errorf("resolve order: %w", err)
	}

	for _, item := range req.Items {
		product, err := m.resolveProduct(ctx, store, item)
		if err != nil {
			return OrderResult{}, err
		}

		if product.CategoryID.Valid && !m.gate.IsCategoryOpen(ctx, product.CategoryID.Int64) {
			return OrderResult{}, &ClosedCategoryError{
				ProductName: product.Name,
				CategoryID:  product.CategoryID.Int64,
			}
		}

		if err := m.ledger.Reserve(ctx, tx, product.ID, item.Quantity); err != nil {
			return OrderResult{}, err
		}

		subtotal := product.Price.Mul(decimal.NewFromInt32(item.Quantity))
		if err := store.InsertLine(ctx, InsertLineParams{
			OrderID:     pgtype.Int8{Int64: orderID, Valid: true},
			SessionID:   sessionID,
			PosItemID:   product.PosItemID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
			Subtotal:    subtotal,
			Note:        item.Note,
		}); err != nil {
			return OrderResult{}, fmt.Errorf("insert order line: %w", err)
		}
	}

	total, err := store.RecomputeOrderTotal(ctx, orderID)
	if err != nil {
		return OrderResult{}, fmt.Errorf("recompute total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return OrderResult{}, fmt.Errorf("commit order: %w", err)
	}

	m.logger.Info("catalog order accepted",
		zap.Int64("orderId", orderID),
		zap.String("room", req.RoomNumber),
		zap.Int("items", len(req.Items)))

	return OrderResult{
		Mode:      ModeCatalog,
		OrderID:   orderID,
		SessionID: sessionID,
		Total:     total,
	}, nil
}

func (m *CatalogOrderManager) resolveProduct(ctx context.Context, store Store, item RequestItem) (ProductRow, error) {
	var (
		product ProductRow
		err     error
		ref     string
	)
	switch {
	case item.ProductID > 0:
		ref = strconv.FormatInt(item.ProductID, 10)
		product, err = store.ProductByID(ctx, item.ProductID)
	case item.PosItemID != "":
		ref = item.PosItemID
		product, err = store.ProductByPosItemID(ctx, item.PosItemID)
	default:
		return ProductRow{}, ErrProductNotFound
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductRow{}, &UnknownProductError{Ref: ref}
	}
	if err != nil {
		return ProductRow{}, fmt.Errorf("load product: %w", err)
	}
	if !product.Active {
		return ProductRow{}, &UnknownProductError{Ref: ref}
	}
	return product, nil
}

func (m *CatalogOrderManager) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := m.store.OrderByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (m *CatalogOrderManager) OrdersByRoom(ctx context.Context, roomNumber string) ([]Order, error) {
	if roomNumber == "" {
		return nil, ErrMissingRoom
	}
	return m.store.OrdersByRoom(ctx, roomNumber)
}

// CompleteOrdersOnCheckout settles every open order of a room in one
// statement, so a repeated checkout finds nothing left to complete and
// reports zero without error.
func (m *CatalogOrderManager) CompleteOrdersOnCheckout(ctx context.Context, roomNumber string) (int64, error) {
	if roomNumber == "" {
		return 0, ErrMissingRoom
	}
	completed, err := m.store.CompleteOpenOrders(ctx, roomNumber)
	if err != nil {
		return 0, fmt.Errorf("complete open orders: %w", err)
	}
	if completed > 0 {
		m.logger.Info("room checked out",
			zap.String("room", roomNumber), zap.Int64("ordersCompleted", completed))
	}
	return completed, nil
}
