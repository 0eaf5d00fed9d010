package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"roomdine-order-service/internal/utils"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the same store works
// inside and outside a reconciliation transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type LocalCategory struct {
	ID            int64
	PosCategoryID string
	Name          string
	DisplayOrder  int32
	Active        bool
}

type LocalProduct struct {
	ID           int64
	PosItemID    string
	CategoryID   pgtype.Int8
	Name         string
	Price        decimal.Decimal
	Active       bool
	DisplayOrder int32
}

type InsertProductParams struct {
	PosItemID    string
	CategoryID   pgtype.Int8
	Name         string
	Price        decimal.Decimal
	Active       bool
	DisplayOrder int32
}

type UpdateProductParams struct {
	CategoryID pgtype.Int8
	Name       string
	Price      decimal.Decimal
	Active     bool
}

type ProductImageRef struct {
	ID        int64
	PosItemID string
}

// Store is the storage surface of the sync engine.
type Store interface {
	Categories(ctx context.Context) ([]LocalCategory, error)
	InsertCategory(ctx context.Context, posCategoryID, name string, displayOrder int32) error
	UpdateCategory(ctx context.Context, id int64, name string, active bool) error

	Products(ctx context.Context) ([]LocalProduct, error)
	InsertProduct(ctx context.Context, params InsertProductParams) error
	UpdateProduct(ctx context.Context, id int64, params UpdateProductParams) error

	ProductsMissingImage(ctx context.Context, limit int32) ([]ProductImageRef, error)
	SetProductImage(ctx context.Context, id int64, imageURL string) error

	UpsertSyncStats(ctx context.Context, provider, tableName string, res Result) error
}

// NewStore builds a Store from a pool or transaction.
type NewStore func(db DBTX) Store

type pgStore struct {
	db DBTX
}

func NewPgStore(db DBTX) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Categories(ctx context.Context) ([]LocalCategory, error) {
	rows, err := s.db.Query(ctx, `
		select id, pos_category_id, name, display_order, is_active
		from categories
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LocalCategory
	for rows.Next() {
		var c LocalCategory
		if err := rows.Scan(&c.ID, &c.PosCategoryID, &c.Name, &c.DisplayOrder, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *pgStore) InsertCategory(ctx context.Context, posCategoryID, name string, displayOrder int32) error {
	_, err := s.db.Exec(ctx, `
		insert into categories (pos_category_id, name, display_order, is_active)
		values ($1, $2, $3, true)
	`, posCategoryID, name, displayOrder)
	return err
}

func (s *pgStore) UpdateCategory(ctx context.Context, id int64, name string, active bool) error {
	_, err := s.db.Exec(ctx, `
		update categories
		set name = $1, is_active = $2, updated_at = now()
		where id = $3
	`, name, active, id)
	return err
}

func (s *pgStore) Products(ctx context.Context) ([]LocalProduct, error) {
	rows, err := s.db.Query(ctx, `
		select id, pos_item_id, category_id, name, price, is_active, display_order
		from products
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LocalProduct
	for rows.Next() {
		var p LocalProduct
		var price pgtype.Numeric
		if err := rows.Scan(&p.ID, &p.PosItemID, &p.CategoryID, &p.Name, &price, &p.Active, &p.DisplayOrder); err != nil {
			return nil, err
		}
		p.Price = utils.NumericToDecimal(price)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *pgStore) InsertProduct(ctx context.Context, params InsertProductParams) error {
	_, err := s.db.Exec(ctx, `
		insert into products (pos_item_id, category_id, name, price, is_active, display_order)
		values ($1, $2, $3, $4, $5, $6)
	`, params.PosItemID, params.CategoryID, params.Name,
		utils.DecimalToNumeric(params.Price), params.Active, params.DisplayOrder)
	return err
}

func (s *pgStore) UpdateProduct(ctx context.Context, id int64, params UpdateProductParams) error {
	_, err := s.db.Exec(ctx, `
		update products
		set category_id = $1, name = $2, price = $3, is_active = $4, updated_at = now()
		where id = $5
	`, params.CategoryID, params.Name, utils.DecimalToNumeric(params.Price), params.Active, id)
	return err
}

func (s *pgStore) ProductsMissingImage(ctx context.Context, limit int32) ([]ProductImageRef, error) {
	rows, err := s.db.Query(ctx, `
		select id, pos_item_id
		from products
		where is_active = true and (image_url is null or image_url = '')
		order by id
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductImageRef
	for rows.Next() {
		var ref ProductImageRef
		if err := rows.Scan(&ref.ID, &ref.PosItemID); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (s *pgStore) SetProductImage(ctx context.Context, id int64, imageURL string) error {
	_, err := s.db.Exec(ctx, `
		update products set image_url = $1, updated_at = now() where id = $2
	`, imageURL, id)
	return err
}

func (s *pgStore) UpsertSyncStats(ctx context.Context, provider, tableName string, res Result) error {
	_, err := s.db.Exec(ctx, `
		insert into sync_stats (provider, table_name, added, updated, skipped, errors, success, message, run_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, now())
		on conflict (provider, table_name) do update
		set added = excluded.added,
		    updated = excluded.updated,
		    skipped = excluded.skipped,
		    errors = excluded.errors,
		    success = excluded.success,
		    message = excluded.message,
		    run_at = excluded.run_at
	`, provider, tableName, res.Stats.Added, res.Stats.Updated, res.Stats.Skipped,
		res.Stats.Errors, res.Success, res.Message)
	return err
}
