package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrInsufficientStock marks a reservation conflict. The caller owns the
// transaction and must roll it back; the ledger never retries on its own
// because a silent retry could reorder guest intent.
var ErrInsufficientStock = errors.New("insufficient stock")

// ConflictError identifies the offending product so the API layer can report
// it to the guest.
type ConflictError struct {
	ProductID int64
	Requested int32
	Available int32
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *ConflictError) Unwrap() error { return ErrInsufficientStock }

// Querier is the transaction slice the ledger needs. Satisfied by pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Ledger enforces stock-safe decrements under a caller-managed transaction.
// With tracking disabled (POS is the authoritative stock source) every
// reservation succeeds without touching the row.
type Ledger struct {
	trackStock bool
}

func NewLedger(trackStock bool) *Ledger {
	return &Ledger{trackStock: trackStock}
}

func (l *Ledger) TrackingEnabled() bool { return l.trackStock }

// Reserve locks the product row for the enclosing transaction and decrements
// quantity. A NULL quantity means the product is not stock-tracked. The
// decrement keeps a stock_qty >= $1 guard so quantity can never go negative
// even if the preceding read is ever bypassed.
func (l *Ledger) Reserve(ctx context.Context, q Querier, productID int64, qty int32) error {
	if !l.trackStock {
		return nil
	}
	if qty <= 0 {
		return fmt.Errorf("invalid reserve quantity %d", qty)
	}

	var stockQty pgtype.Int4
	if err := q.QueryRow(ctx, `
		select stock_qty from products where id = $1 for update
	`, productID).Scan(&stockQty); err != nil {
		return err
	}

	if !stockQty.Valid {
		return nil
	}
	if stockQty.Int32 < qty {
		return &ConflictError{ProductID: productID, Requested: qty, Available: stockQty.Int32}
	}

	res, err := q.Exec(ctx, `
		update products
		set stock_qty = stock_qty - $1, updated_at = now()
		where id = $2 and stock_qty >= $1
	`, qty, productID)
	if err != nil {
		return err
	}
	if res.RowsAffected() != 1 {
		return &ConflictError{ProductID: productID, Requested: qty, Available: stockQty.Int32}
	}
	return nil
}

// Release returns quantity to a tracked product (order cancellation path).
func (l *Ledger) Release(ctx context.Context, q Querier, productID int64, qty int32) error {
	if !l.trackStock || qty <= 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		update products
		set stock_qty = stock_qty + $1, updated_at = now()
		where id = $2 and stock_qty is not null
	`, qty, productID)
	return err
}
