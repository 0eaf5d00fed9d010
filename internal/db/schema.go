package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Bootstrap applies the schema at startup. Every statement is idempotent, so
// running against an already-provisioned database is a no-op.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schemaStatements = []string{
	`create table if not exists categories (
		id bigserial primary key,
		pos_category_id text not null unique,
		name text not null,
		display_order int not null default 10,
		is_active boolean not null default true,
		open_order_time text,
		last_order_time text,
		created_at timestamptz not null default now(),
		updated_at timestamptz not null default now()
	)`,

	`create table if not exists products (
		id bigserial primary key,
		pos_item_id text not null unique,
		category_id bigint references categories(id),
		name text not null,
		price numeric(12,2) not null default 0,
		is_active boolean not null default true,
		stock_qty int,
		display_order int not null default 10,
		is_pickup boolean not null default false,
		label1 text,
		label2 text,
		image_url text,
		created_at timestamptz not null default now(),
		updated_at timestamptz not null default now()
	)`,

	`create table if not exists orders (
		id bigserial primary key,
		room_number text not null,
		guest_name text,
		messaging_user_id text,
		session_id text not null,
		status text not null default 'OPEN',
		total numeric(12,2) not null default 0,
		note text,
		created_at timestamptz not null default now(),
		checked_out_at timestamptz
	)`,
	`create index if not exists orders_room_status_idx on orders (room_number, status)`,
	`create index if not exists orders_session_idx on orders (session_id)`,

	`create table if not exists room_tickets (
		id bigserial primary key,
		room_number text not null,
		pos_ticket_ref text not null,
		guest_name text,
		messaging_user_id text,
		status text not null default 'OPEN',
		created_at timestamptz not null default now(),
		closed_at timestamptz
	)`,
	// Structural backstop for the one-open-ticket-per-room invariant.
	`create unique index if not exists room_tickets_one_open_idx
		on room_tickets (room_number) where status = 'OPEN'`,

	`create table if not exists order_details (
		id bigserial primary key,
		order_id bigint references orders(id),
		ticket_id bigint references room_tickets(id),
		session_id text,
		pos_item_id text,
		product_name text not null,
		unit_price numeric(12,2) not null default 0,
		quantity int not null,
		subtotal numeric(12,2) not null default 0,
		note text,
		status text not null default 'ordered',
		created_at timestamptz not null default now()
	)`,
	`create index if not exists order_details_order_idx on order_details (order_id)`,
	`create index if not exists order_details_ticket_idx on order_details (ticket_id)`,

	`create table if not exists sync_stats (
		id bigserial primary key,
		provider text not null,
		table_name text not null,
		added int not null default 0,
		updated int not null default 0,
		skipped int not null default 0,
		errors int not null default 0,
		success boolean not null default false,
		message text,
		run_at timestamptz not null default now(),
		unique (provider, table_name)
	)`,

	`create table if not exists settings (
		key text primary key,
		value text not null,
		updated_at timestamptz not null default now()
	)`,

	`create table if not exists kitchen_notifications (
		id bigserial primary key,
		event_type text not null,
		room_number text not null,
		order_id bigint,
		ticket_id bigint,
		message text not null,
		acknowledged boolean not null default false,
		created_at timestamptz not null default now()
	)`,
	`create index if not exists kitchen_notifications_unacked_idx
		on kitchen_notifications (created_at) where not acknowledged`,
}
