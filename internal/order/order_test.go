package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"roomdine-order-service/internal/pos"
	"roomdine-order-service/internal/stock"
)

// --- Mock transaction (unused methods panic so stray calls are caught) ---

type mockTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error {
	m.rolledBack = true
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

type mockPool struct {
	tx       *mockTx
	beginErr error
	begun    int
}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	m.begun++
	return m.tx, nil
}

// --- Mock store ---

type mockOrderStore struct {
	products map[int64]ProductRow
	byPosID  map[string]ProductRow

	openOrderID  int64
	nextOrderID  int64
	insertedOrds []InsertOrderParams
	lines        []InsertLineParams
	lineErr      error
	total        decimal.Decimal

	completedRooms []string
	completedCount int64

	orders map[int64]Order

	openTicket    *Ticket
	nextTicketID  int64
	insertedTkts  []InsertTicketParams
	insertTktErr  error
	closedRooms   []string
	closedCount   int64
	ticketsByRoom []Ticket
	ticketLines   map[int64][]OrderLine
}

func (m *mockOrderStore) ProductByID(ctx context.Context, id int64) (ProductRow, error) {
	p, ok := m.products[id]
	if !ok {
		return ProductRow{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockOrderStore) ProductByPosItemID(ctx context.Context, posItemID string) (ProductRow, error) {
	p, ok := m.byPosID[posItemID]
	if !ok {
		return ProductRow{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockOrderStore) OpenOrderIDBySession(ctx context.Context, roomNumber, sessionID string) (int64, error) {
	if m.openOrderID == 0 {
		return 0, pgx.ErrNoRows
	}
	return m.openOrderID, nil
}

func (m *mockOrderStore) InsertOrder(ctx context.Context, params InsertOrderParams) (int64, error) {
	m.insertedOrds = append(m.insertedOrds, params)
	if m.nextOrderID == 0 {
		m.nextOrderID = 100
	}
	return m.nextOrderID, nil
}

func (m *mockOrderStore) InsertLine(ctx context.Context, params InsertLineParams) error {
	if m.lineErr != nil {
		return m.lineErr
	}
	m.lines = append(m.lines, params)
	return nil
}

func (m *mockOrderStore) RecomputeOrderTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range m.lines {
		if l.OrderID.Valid && l.OrderID.Int64 == orderID {
			total = total.Add(l.Subtotal)
		}
	}
	m.total = total
	return total, nil
}

func (m *mockOrderStore) CompleteOpenOrders(ctx context.Context, roomNumber string) (int64, error) {
	m.completedRooms = append(m.completedRooms, roomNumber)
	n := m.completedCount
	m.completedCount = 0
	return n, nil
}

func (m *mockOrderStore) OrderByID(ctx context.Context, id int64) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) OrdersByRoom(ctx context.Context, roomNumber string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.RoomNumber == roomNumber {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderStore) OpenTicketForUpdate(ctx context.Context, roomNumber string) (Ticket, error) {
	if m.openTicket == nil {
		return Ticket{}, pgx.ErrNoRows
	}
	return *m.openTicket, nil
}

func (m *mockOrderStore) InsertTicket(ctx context.Context, params InsertTicketParams) (int64, error) {
	if m.insertTktErr != nil {
		return 0, m.insertTktErr
	}
	m.insertedTkts = append(m.insertedTkts, params)
	if m.nextTicketID == 0 {
		m.nextTicketID = 7
	}
	return m.nextTicketID, nil
}

func (m *mockOrderStore) CloseOpenTicket(ctx context.Context, roomNumber string) (int64, error) {
	m.closedRooms = append(m.closedRooms, roomNumber)
	return m.closedCount, nil
}

func (m *mockOrderStore) TicketByID(ctx context.Context, id int64) (Ticket, error) {
	for _, t := range m.ticketsByRoom {
		if t.ID == id {
			return t, nil
		}
	}
	return Ticket{}, pgx.ErrNoRows
}

func (m *mockOrderStore) TicketsByRoom(ctx context.Context, roomNumber string) ([]Ticket, error) {
	return m.ticketsByRoom, nil
}

func (m *mockOrderStore) OpenTicketByRoom(ctx context.Context, roomNumber string) (Ticket, error) {
	if m.openTicket == nil {
		return Ticket{}, pgx.ErrNoRows
	}
	return *m.openTicket, nil
}

func (m *mockOrderStore) TicketLines(ctx context.Context, ticketID int64) ([]OrderLine, error) {
	return m.ticketLines[ticketID], nil
}

// --- Fakes for the collaborators ---

type fakeGate struct {
	closed map[int64]bool
}

func (f *fakeGate) IsCategoryOpen(ctx context.Context, categoryID int64) bool {
	return !f.closed[categoryID]
}

type fakeLedger struct {
	reserved   map[int64]int32
	conflictOn int64
}

func (f *fakeLedger) Reserve(ctx context.Context, q stock.Querier, productID int64, qty int32) error {
	if productID == f.conflictOn {
		return &stock.ConflictError{ProductID: productID, Requested: qty, Available: 0}
	}
	if f.reserved == nil {
		f.reserved = make(map[int64]int32)
	}
	f.reserved[productID] += qty
	return nil
}

type fakePOS struct {
	ticketRef     string
	createErr     error
	appendErr     error
	closeErr      error
	created       int
	appended      [][]pos.TicketItem
	closedTickets []string
}

func (f *fakePOS) FetchCategories(ctx context.Context) ([]pos.Category, error) {
	panic("not implemented")
}
func (f *fakePOS) FetchProducts(ctx context.Context) ([]pos.Product, error) {
	panic("not implemented")
}
func (f *fakePOS) FetchProductImage(ctx context.Context, productID string) (string, error) {
	panic("not implemented")
}
func (f *fakePOS) CreateTicket(ctx context.Context, roomNumber, guestName string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	return f.ticketRef, nil
}
func (f *fakePOS) AppendTicketItems(ctx context.Context, ticketRef string, items []pos.TicketItem) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, items)
	return nil
}
func (f *fakePOS) CloseTicket(ctx context.Context, ticketRef string) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closedTickets = append(f.closedTickets, ticketRef)
	return nil
}

func catalogProducts() map[int64]ProductRow {
	return map[int64]ProductRow{
		1: {ID: 1, PosItemID: "P1", CategoryID: pgtype.Int8{Int64: 10, Valid: true},
			Name: "Nasi Goreng", Price: decimal.NewFromInt(55), Active: true},
		2: {ID: 2, PosItemID: "P2", CategoryID: pgtype.Int8{Int64: 20, Valid: true},
			Name: "Es Teh", Price: decimal.NewFromInt(12), Active: true},
		3: {ID: 3, PosItemID: "P3", CategoryID: pgtype.Int8{Int64: 10, Valid: true},
			Name: "Retired Dish", Price: decimal.NewFromInt(30), Active: false},
	}
}

func newCatalogManager(store *mockOrderStore, gate *fakeGate, ledger *fakeLedger) (*CatalogOrderManager, *mockTx) {
	tx := &mockTx{}
	pool := &mockPool{tx: tx}
	newStore := func(db DBTX) Store { return store }
	return NewCatalogOrderManager(pool, newStore, store, ledger, gate, zap.NewNop()), tx
}

func newTicketManager(store *mockOrderStore, provider *fakePOS) (*RoomTicketManager, *mockTx, *mockPool) {
	tx := &mockTx{}
	pool := &mockPool{tx: tx}
	newStore := func(db DBTX) Store { return store }
	return NewRoomTicketManager(pool, newStore, store, provider, zap.NewNop()), tx, pool
}

// --- Catalog mode ---

func TestCatalogCreateOrderHappyPath(t *testing.T) {
	store := &mockOrderStore{products: catalogProducts()}
	gate := &fakeGate{}
	ledger := &fakeLedger{}
	mgr, tx := newCatalogManager(store, gate, ledger)

	res, err := mgr.CreateOrder(context.Background(), CreateOrderRequest{
		RoomNumber: "501",
		Items: []RequestItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}
	if res.Mode != ModeCatalog || res.OrderID != 100 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.SessionID == "" {
		t.Fatal("a session id must be generated when the caller sends none")
	}
	if want := decimal.NewFromInt(122); !res.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, res.Total)
	}
	if ledger.reserved[1] != 2 || ledger.reserved[2] != 1 {
		t.Fatalf("unexpected reservations: %+v", ledger.reserved)
	}
	if len(store.lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(store.lines))
	}
}

func TestCatalogCreateOrderAllOrNothingOnConflict(t *testing.T) {
	// Second line conflicts: nothing commits, no line survives.
	store := &mockOrderStore{products: catalogProducts()}
	gate := &fakeGate{}
	ledger := &fakeLedger{conflictOn: 2}
	mgr, tx := newCatalogManager(store, gate, ledger)

	_, err := mgr.CreateOrder(context.Background(), CreateOrderRequest{
		RoomNumber: "501",
		Items: []RequestItem{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 3},
		},
	})

	var conflict *stock.ConflictError
	if !errors.As(err, &conflict) || conflict.ProductID != 2 {
		t.Fatalf("expected a stock conflict for product 2, got %v", err)
	}
	if tx.committed {
		t.Fatal("a conflicting request must not commit")
	}
	if !tx.rolledBack {
		t.Fatal("expected rollback")
	}
}

func TestCatalogCreateOrderRejectsClosedCategory(t *testing.T) {
	store := &mockOrderStore{products: catalogProducts()}
	gate := &fakeGate{closed: map[int64]bool{20: true}}
	ledger := &fakeLedger{}
	mgr, tx := newCatalogManager(store, gate, ledger)

	_, err := mgr.CreateOrder(context.Background(), CreateOrderRequest{
		RoomNumber: "501",
		Items: []RequestItem{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 1},
		},
	})

	var closed *ClosedCategoryError
	if !errors.As(err, &closed) || closed.CategoryID != 20 {
		t.Fatalf("expected a closed-category error for category 20, got %v", err)
	}
	if !errors.Is(err, ErrCategoryClosed) {
		t.Fatal("closed-category errors must unwrap to the sentinel")
	}
	if tx.committed {
		t.Fatal("no commit on a closed category")
	}
	if len(ledger.reserved) != 1 {
		t.Fatalf("only the first line should have reserved before the gate tripped: %+v", ledger.reserved)
	}
}

func TestCatalogCreateOrderRejectsInactiveProduct(t *testing.T) {
	store := &mockOrderStore{products: catalogProducts()}
	mgr, _ := newCatalogManager(store, &fakeGate{}, &fakeLedger{})

	_, err := mgr.CreateOrder(context.Background(), CreateOrderRequest{
		RoomNumber: "501",
		Items:      []RequestItem{{ProductID: 3, Quantity: 1}},
	})

	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("inactive products must be rejected as not found, got %v", err)
	}
}

func TestCatalogCreateOrderValidatesBeforeTransaction(t *testing.T) {
	store := &mockOrderStore{products: catalogProducts()}
	tx := &mockTx{}
	pool := &mockPool{tx: tx}
	mgr := NewCatalogOrderManager(pool, func(db DBTX) Store { return store }, store,
		&fakeLedger{}, &fakeGate{}, zap.NewNop())

	cases := []struct {
		name string
		req  CreateOrderRequest
		want error
	}{
		{"missing room", CreateOrderRequest{Items: []RequestItem{{ProductID: 1, Quantity: 1}}}, ErrMissingRoom},
		{"no items", CreateOrderRequest{RoomNumber: "501"}, ErrEmptyItems},
		{"zero quantity", CreateOrderRequest{RoomNumber: "501", Items: []RequestItem{{ProductID: 1}}}, ErrInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mgr.CreateOrder(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if pool.begun != 0 {
		t.Fatal("validation failures must not open a transaction")
	}
}

func TestCatalogCreateOrderAppendsToSessionOrder(t *testing.T) {
	store := &mockOrderStore{products: catalogProducts(), openOrderID: 42}
	mgr, _ := newCatalogManager(store, &fakeGate{}, &fakeLedger{})

	res, err := mgr.CreateOrder(context.Background(), CreateOrderRequest{
		RoomNumber: "501",
		SessionID:  "sess-1",
		Items:      []RequestItem{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != 42 {
		t.Fatalf("expected the open session order to be reused, got %d", res.OrderID)
	}
	if len(store.insertedOrds) != 0 {
		t.Fatal("an open session order must not trigger a new order row")
	}
}

func TestCatalogCheckoutIsIdempotent(t *testing.T) {
	store := &mockOrderStore{completedCount: 3}
	mgr, _ := newCatalogManager(store, &fakeGate{}, &fakeLedger{})

	first, err := mgr.CompleteOrdersOnCheckout(context.Background(), "501")
	if err != nil || first != 3 {
		t.Fatalf("expected 3 completed, got %d (%v)", first, err)
	}
	second, err := mgr.CompleteOrdersOnCheckout(context.Background(), "501")
	if err != nil || second != 0 {
		t.Fatalf("repeat checkout must report zero without error, got %d (%v)", second, err)
	}
}

// --- Open-ticket mode ---

func TestTicketCreateOrderOpensTicketOnFirstOrder(t *testing.T) {
	store := &mockOrderStore{products: catalogProducts()}
	provider := &fakePOS{ticketRef: "TCK-1"}
	mgr, tx, _ := newTicketManager(store, provider)

	res, err := mgr.CreateOrder(context.Background(), CreateOrderRequest{
		RoomNumber: "501",
		GuestName:  "A. Guest",
		Items:      []RequestItem{{ProductID: 1, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.created != 1 {
		t.Fatalf("expected one provider ticket, got %d", provider.created)
	}
	if res.Mode != ModeOpenTicket || res.PosTicketRef != "TCK-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}
	if len(store.lines) != 1 || !store.lines[0].TicketID.Valid {
		t.Fatalf("expected a mirrored ticket line, got %+v", store.lines)
	}
	if want := decimal.NewFromInt(110); !res.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, res.Total)
	}
}

func TestTicketCreateOrderReusesOpenTicket(t *testing.T) {
	open := Ticket{ID: 7, RoomNumber: "501", PosTicketRef: "TCK-1", Status: TicketOpen}
	store := &mockOrderStore{products: catalogProducts(), openTicket: &open}
	provider := &fakePOS{ticketRef: "TCK-NEW"}
	mgr, _, _ := newTicketManager(store, provider)

	res, err := mgr.CreateOrder(context.Background(), CreateOrderRequest{
		RoomNumber: "501",
		Items:      []RequestItem{{ProductID: 2, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.created != 0 {
		t.Fatal("an open ticket must be reused, not recreated")
	}
	if res.TicketID != 7 || res.PosTicketRef != "TCK-1" {
		t.Fatalf("expected the existing ticket, got %+v", res)
	}
}

func TestTicketCreateOrderRollsBackWhenProviderAppendFails(t *testing.T) {
	open := Ticket{ID: 7, RoomNumber: "501", PosTicketRef: "TCK-1", Status: TicketOpen}
	store := &mockOrderStore{products: catalogProducts(), openTicket: &open}
	provider := &fakePOS{appendErr: pos.ErrProvider}
	mgr, tx, _ := newTicketManager(store, provider)

	_, err := mgr.CreateOrder(context.Background(), CreateOrderRequest{
		RoomNumber: "501",
		Items:      []RequestItem{{ProductID: 1, Quantity: 1}},
	})

	if !errors.Is(err, pos.ErrProvider) {
		t.Fatalf("expected the provider error to surface, got %v", err)
	}
	if tx.committed {
		t.Fatal("provider failure must not commit local lines")
	}
	if len(store.lines) != 0 {
		t.Fatal("no local line may be written when the provider rejects the items")
	}
}

func TestTicketCreationRaceSurfacesUniqueViolation(t *testing.T) {
	store := &mockOrderStore{
		products:     catalogProducts(),
		insertTktErr: &pgconn.PgError{Code: "23505"},
	}
	provider := &fakePOS{ticketRef: "TCK-1"}
	mgr, tx, _ := newTicketManager(store, provider)

	_, err := mgr.CreateOrder(context.Background(), CreateOrderRequest{
		RoomNumber: "501",
		Items:      []RequestItem{{ProductID: 1, Quantity: 1}},
	})

	if err == nil {
		t.Fatal("a racing ticket insert must fail the request")
	}
	if tx.committed {
		t.Fatal("the racing transaction must not commit")
	}
}

func TestTicketCheckoutClosesProviderTicket(t *testing.T) {
	open := Ticket{ID: 7, RoomNumber: "501", PosTicketRef: "TCK-1", Status: TicketOpen}
	store := &mockOrderStore{openTicket: &open, closedCount: 1}
	provider := &fakePOS{}
	mgr, tx, _ := newTicketManager(store, provider)

	closed, err := mgr.Checkout(context.Background(), "501")
	if err != nil || closed != 1 {
		t.Fatalf("expected 1 closed ticket, got %d (%v)", closed, err)
	}
	if len(provider.closedTickets) != 1 || provider.closedTickets[0] != "TCK-1" {
		t.Fatalf("expected the provider ticket to close, got %+v", provider.closedTickets)
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}
}

func TestTicketCheckoutWithoutOpenTicketIsNoop(t *testing.T) {
	store := &mockOrderStore{}
	provider := &fakePOS{}
	mgr, tx, _ := newTicketManager(store, provider)

	closed, err := mgr.Checkout(context.Background(), "501")
	if err != nil || closed != 0 {
		t.Fatalf("checkout of a quiet room must be a clean no-op, got %d (%v)", closed, err)
	}
	if len(provider.closedTickets) != 0 {
		t.Fatal("nothing must be sent to the provider")
	}
	if tx.committed {
		t.Fatal("nothing to commit")
	}
}

func TestTicketCheckoutKeepsTicketOpenWhenProviderFails(t *testing.T) {
	open := Ticket{ID: 7, RoomNumber: "501", PosTicketRef: "TCK-1", Status: TicketOpen}
	store := &mockOrderStore{openTicket: &open}
	provider := &fakePOS{closeErr: pos.ErrProvider}
	mgr, tx, _ := newTicketManager(store, provider)

	_, err := mgr.Checkout(context.Background(), "501")
	if !errors.Is(err, pos.ErrProvider) {
		t.Fatalf("expected the provider error, got %v", err)
	}
	if tx.committed || len(store.closedRooms) != 0 {
		t.Fatal("the local ticket must stay open when the provider close fails")
	}
}

// --- Router ---

func TestRouterModeIsFixedAtConstruction(t *testing.T) {
	store := &mockOrderStore{products: catalogProducts()}
	catalog, _ := newCatalogManager(store, &fakeGate{}, &fakeLedger{})
	ticketStore := &mockOrderStore{products: catalogProducts()}
	ticket, _, _ := newTicketManager(ticketStore, &fakePOS{ticketRef: "TCK-9"})

	r := NewRouter(ModeOpenTicket, catalog, ticket)
	if !r.OpenTicketModeEnabled() {
		t.Fatal("router must hold the mode it was constructed with")
	}

	res, err := r.CreateOrder(context.Background(), CreateOrderRequest{
		RoomNumber: "501",
		Items:      []RequestItem{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Mode != ModeOpenTicket {
		t.Fatalf("open-ticket router must dispatch to the ticket manager, got %+v", res)
	}
	if len(store.lines) != 0 {
		t.Fatal("the catalog manager must stay untouched in open-ticket mode")
	}
}

func TestRouterPresentsTicketsAsOrders(t *testing.T) {
	created := time.Date(2026, time.August, 30, 19, 0, 0, 0, time.UTC)
	ticketStore := &mockOrderStore{
		ticketsByRoom: []Ticket{
			{ID: 7, RoomNumber: "501", PosTicketRef: "TCK-1", Status: TicketClosed, CreatedAt: created},
		},
		ticketLines: map[int64][]OrderLine{
			7: {
				{ID: 1, ProductName: "Nasi Goreng", Quantity: 2,
					UnitPrice: decimal.NewFromInt(55), Subtotal: decimal.NewFromInt(110)},
				{ID: 2, ProductName: "Es Teh", Quantity: 1,
					UnitPrice: decimal.NewFromInt(12), Subtotal: decimal.NewFromInt(12)},
			},
		},
	}
	ticket, _, _ := newTicketManager(ticketStore, &fakePOS{})
	r := NewRouter(ModeOpenTicket, nil, ticket)

	orders, err := r.OrdersByRoom(context.Background(), "501")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order view, got %d", len(orders))
	}
	o := orders[0]
	if o.Status != StatusCompleted {
		t.Fatalf("closed tickets must present as completed orders, got %q", o.Status)
	}
	if want := decimal.NewFromInt(122); !o.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, o.Total)
	}
	if len(o.Items) != 2 {
		t.Fatalf("expected the mirrored lines, got %d", len(o.Items))
	}
}

func TestLoadModeDefaultsToCatalog(t *testing.T) {
	db := &settingsDB{err: pgx.ErrNoRows}
	if mode := LoadMode(context.Background(), db, zap.NewNop()); mode != ModeCatalog {
		t.Fatalf("missing setting must default to catalog, got %q", mode)
	}

	db = &settingsDB{value: "true"}
	if mode := LoadMode(context.Background(), db, zap.NewNop()); mode != ModeOpenTicket {
		t.Fatalf("expected open-ticket mode, got %q", mode)
	}
}

// settingsDB serves exactly the single settings lookup LoadMode performs.
type settingsDB struct {
	value string
	err   error
}

func (s *settingsDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return settingsRow{value: s.value, err: s.err}
}
func (s *settingsDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (s *settingsDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

type settingsRow struct {
	value string
	err   error
}

func (r settingsRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if p, ok := dest[0].(*string); ok {
		*p = r.value
	}
	return nil
}
