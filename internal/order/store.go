package order

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"roomdine-order-service/internal/utils"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts a transaction. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type ProductRow struct {
	ID         int64
	PosItemID  string
	CategoryID pgtype.Int8
	Name       string
	Price      decimal.Decimal
	Active     bool
}

type InsertOrderParams struct {
	RoomNumber      string
	GuestName       string
	MessagingUserID string
	SessionID       string
	Note            string
}

type InsertLineParams struct {
	OrderID     pgtype.Int8
	TicketID    pgtype.Int8
	SessionID   string
	PosItemID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int32
	Subtotal    decimal.Decimal
	Note        string
}

type InsertTicketParams struct {
	RoomNumber      string
	PosTicketRef    string
	GuestName       string
	MessagingUserID string
}

// Store is the storage surface shared by both order managers. Satisfied by
// the pgx-backed implementation below; mocked in unit tests.
type Store interface {
	ProductByID(ctx context.Context, id int64) (ProductRow, error)
	ProductByPosItemID(ctx context.Context, posItemID string) (ProductRow, error)

	OpenOrderIDBySession(ctx context.Context, roomNumber, sessionID string) (int64, error)
	InsertOrder(ctx context.Context, params InsertOrderParams) (int64, error)
	InsertLine(ctx context.Context, params InsertLineParams) error
	RecomputeOrderTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
	CompleteOpenOrders(ctx context.Context, roomNumber string) (int64, error)
	OrderByID(ctx context.Context, id int64) (Order, error)
	OrdersByRoom(ctx context.Context, roomNumber string) ([]Order, error)

	OpenTicketForUpdate(ctx context.Context, roomNumber string) (Ticket, error)
	InsertTicket(ctx context.Context, params InsertTicketParams) (int64, error)
	CloseOpenTicket(ctx context.Context, roomNumber string) (int64, error)
	TicketByID(ctx context.Context, id int64) (Ticket, error)
	TicketsByRoom(ctx context.Context, roomNumber string) ([]Ticket, error)
	OpenTicketByRoom(ctx context.Context, roomNumber string) (Ticket, error)
	TicketLines(ctx context.Context, ticketID int64) ([]OrderLine, error)
}

type NewStore func(db DBTX) Store

type pgStore struct {
	db DBTX
}

func NewPgStore(db DBTX) Store {
	return &pgStore{db: db}
}

const productColumns = `id, pos_item_id, category_id, name, price, is_active`

func (s *pgStore) scanProduct(row pgx.Row) (ProductRow, error) {
	var p ProductRow
	var price pgtype.Numeric
	if err := row.Scan(&p.ID, &p.PosItemID, &p.CategoryID, &p.Name, &price, &p.Active); err != nil {
		return ProductRow{}, err
	}
	p.Price = utils.NumericToDecimal(price)
	return p, nil
}

func (s *pgStore) ProductByID(ctx context.Context, id int64) (ProductRow, error) {
	return s.scanProduct(s.db.QueryRow(ctx,
		`select `+productColumns+` from products where id = $1`, id))
}

func (s *pgStore) ProductByPosItemID(ctx context.Context, posItemID string) (ProductRow, error) {
	return s.scanProduct(s.db.QueryRow(ctx,
		`select `+productColumns+` from products where pos_item_id = $1`, posItemID))
}

func (s *pgStore) OpenOrderIDBySession(ctx context.Context, roomNumber, sessionID string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		select id from orders
		where room_number = $1 and session_id = $2 and status = 'OPEN'
		for update
	`, roomNumber, sessionID).Scan(&id)
	return id, err
}

func (s *pgStore) InsertOrder(ctx context.Context, params InsertOrderParams) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		insert into orders (room_number, guest_name, messaging_user_id, session_id, status, note)
		values ($1, $2, $3, $4, 'OPEN', $5)
		returning id
	`, params.RoomNumber, params.GuestName, params.MessagingUserID, params.SessionID, params.Note).Scan(&id)
	return id, err
}

func (s *pgStore) InsertLine(ctx context.Context, params InsertLineParams) error {
	_, err := s.db.Exec(ctx, `
		insert into order_details
			(order_id, ticket_id, session_id, pos_item_id, product_name, unit_price, quantity, subtotal, note)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, params.OrderID, params.TicketID, params.SessionID, params.PosItemID, params.ProductName,
		utils.DecimalToNumeric(params.UnitPrice), params.Quantity,
		utils.DecimalToNumeric(params.Subtotal), params.Note)
	return err
}

func (s *pgStore) RecomputeOrderTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total pgtype.Numeric
	err := s.db.QueryRow(ctx, `
		update orders
		set total = coalesce((select sum(subtotal) from order_details where order_id = $1), 0)
		where id = $1
		returning total
	`, orderID).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return utils.NumericToDecimal(total), nil
}

func (s *pgStore) CompleteOpenOrders(ctx context.Context, roomNumber string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		update orders
		set status = 'COMPLETED', checked_out_at = now()
		where room_number = $1 and status = 'OPEN'
	`, roomNumber)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const orderColumns = `id, room_number, coalesce(guest_name, ''), coalesce(messaging_user_id, ''),
	session_id, status, total, coalesce(note, ''), created_at, checked_out_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var total pgtype.Numeric
	var checkedOut pgtype.Timestamptz
	err := row.Scan(&o.ID, &o.RoomNumber, &o.GuestName, &o.MessagingUserID,
		&o.SessionID, &o.Status, &total, &o.Note, &o.CreatedAt, &checkedOut)
	if err != nil {
		return Order{}, err
	}
	o.Total = utils.NumericToDecimal(total)
	if checkedOut.Valid {
		t := checkedOut.Time
		o.CheckedOutAt = &t
	}
	return o, nil
}

func (s *pgStore) OrderByID(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx,
		`select `+orderColumns+` from orders where id = $1`, id))
	if err != nil {
		return Order{}, err
	}
	o.Items, err = s.linesFor(ctx, `order_id`, o.ID)
	return o, err
}

func (s *pgStore) OrdersByRoom(ctx context.Context, roomNumber string) ([]Order, error) {
	rows, err := s.db.Query(ctx,
		`select `+orderColumns+` from orders where room_number = $1 order by created_at desc`,
		roomNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = s.linesFor(ctx, `order_id`, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *pgStore) linesFor(ctx context.Context, column string, parentID int64) ([]OrderLine, error) {
	rows, err := s.db.Query(ctx, `
		select id, coalesce(pos_item_id, ''), product_name, unit_price, quantity, subtotal,
		       coalesce(note, ''), status
		from order_details
		where `+column+` = $1
		order by id
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderLine
	for rows.Next() {
		var l OrderLine
		var unit, subtotal pgtype.Numeric
		if err := rows.Scan(&l.ID, &l.PosItemID, &l.ProductName, &unit, &l.Quantity,
			&subtotal, &l.Note, &l.Status); err != nil {
			return nil, err
		}
		l.UnitPrice = utils.NumericToDecimal(unit)
		l.Subtotal = utils.NumericToDecimal(subtotal)
		out = append(out, l)
	}
	return out, rows.Err()
}

const ticketColumns = `id, room_number, pos_ticket_ref, coalesce(guest_name, ''),
	coalesce(messaging_user_id, ''), status, created_at, closed_at`

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	var closedAt pgtype.Timestamptz
	err := row.Scan(&t.ID, &t.RoomNumber, &t.PosTicketRef, &t.GuestName,
		&t.MessagingUserID, &t.Status, &t.CreatedAt, &closedAt)
	if err != nil {
		return Ticket{}, err
	}
	if closedAt.Valid {
		c := closedAt.Time
		t.ClosedAt = &c
	}
	return t, nil
}

// OpenTicketForUpdate serializes concurrent additions for one room: the
// second transaction blocks here until the first commits.
func (s *pgStore) OpenTicketForUpdate(ctx context.Context, roomNumber string) (Ticket, error) {
	return scanTicket(s.db.QueryRow(ctx, `
		select `+ticketColumns+` from room_tickets
		where room_number = $1 and status = 'OPEN'
		for update
	`, roomNumber))
}

func (s *pgStore) InsertTicket(ctx context.Context, params InsertTicketParams) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		insert into room_tickets (room_number, pos_ticket_ref, guest_name, messaging_user_id, status)
		values ($1, $2, $3, $4, 'OPEN')
		returning id
	`, params.RoomNumber, params.PosTicketRef, params.GuestName, params.MessagingUserID).Scan(&id)
	return id, err
}

func (s *pgStore) CloseOpenTicket(ctx context.Context, roomNumber string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		update room_tickets
		set status = 'CLOSED', closed_at = now()
		where room_number = $1 and status = 'OPEN'
	`, roomNumber)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *pgStore) TicketByID(ctx context.Context, id int64) (Ticket, error) {
	return scanTicket(s.db.QueryRow(ctx,
		`select `+ticketColumns+` from room_tickets where id = $1`, id))
}

func (s *pgStore) OpenTicketByRoom(ctx context.Context, roomNumber string) (Ticket, error) {
	return scanTicket(s.db.QueryRow(ctx, `
		select `+ticketColumns+` from room_tickets
		where room_number = $1 and status = 'OPEN'
	`, roomNumber))
}

func (s *pgStore) TicketsByRoom(ctx context.Context, roomNumber string) ([]Ticket, error) {
	rows, err := s.db.Query(ctx, `
		select `+ticketColumns+` from room_tickets
		where room_number = $1
		order by created_at desc
	`, roomNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *pgStore) TicketLines(ctx context.Context, ticketID int64) ([]OrderLine, error) {
	return s.linesFor(ctx, `ticket_id`, ticketID)
}
