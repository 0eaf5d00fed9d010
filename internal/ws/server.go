package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"roomdine-order-service/internal/auth"
	"roomdine-order-service/internal/config"
	"roomdine-order-service/internal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Config config.Config

	kitchenRealtime *kitchenRealtime
}

func New(db *pgxpool.Pool, logger *zap.Logger, cfg config.Config) *Server {
	srv := &Server{DB: db, Logger: logger, Config: cfg}
	srv.kitchenRealtime = newKitchenRealtime(db, logger, cfg.WSKitchenPollInterval)
	return srv
}

type wsRealtimeClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsRealtimeClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

// KitchenOrderItem is one pending line in the kitchen feed, across both order
// lifecycles.
type KitchenOrderItem struct {
	ID          int64     `json:"id"`
	RoomNumber  string    `json:"roomNumber"`
	ProductName string    `json:"productName"`
	Quantity    int32     `json:"quantity"`
	Note        *string   `json:"note,omitempty"`
	Status      string    `json:"status"`
	OrderedAt   time.Time `json:"orderedAt"`
}

// kitchenRealtime pushes the active order queue to every connected kitchen
// display. One global feed; the kitchen is a single audience.
type kitchenRealtime struct {
	db           *pgxpool.Pool
	logger       *zap.Logger
	pollInterval time.Duration

	started sync.Once
	mu      sync.RWMutex
	subs    map[*wsRealtimeClient]struct{}
}

func newKitchenRealtime(db *pgxpool.Pool, logger *zap.Logger, pollInterval time.Duration) *kitchenRealtime {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &kitchenRealtime{
		db:           db,
		logger:       logger,
		pollInterval: pollInterval,
		subs:         make(map[*wsRealtimeClient]struct{}),
	}
}

func (kr *kitchenRealtime) ensureStarted() {
	kr.started.Do(func() {
		go kr.pollLoop(context.Background())
	})
}

func (kr *kitchenRealtime) subscribe(client *wsRealtimeClient) (unsubscribe func()) {
	kr.mu.Lock()
	kr.subs[client] = struct{}{}
	kr.mu.Unlock()

	return func() {
		kr.mu.Lock()
		delete(kr.subs, client)
		kr.mu.Unlock()
	}
}

func (kr *kitchenRealtime) broadcast(message any) {
	kr.mu.RLock()
	clients := make([]*wsRealtimeClient, 0, len(kr.subs))
	for c := range kr.subs {
		clients = append(clients, c)
	}
	kr.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			_ = c.conn.Close()
			kr.mu.Lock()
			delete(kr.subs, c)
			kr.mu.Unlock()
		}
	}
}

func (kr *kitchenRealtime) hasSubscribers() bool {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	return len(kr.subs) > 0
}

// pollLoop rebroadcasts the queue whenever the newest pending line changes.
// Polling keeps the feed correct under both order modes without wiring
// database triggers.
func (kr *kitchenRealtime) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(kr.pollInterval)
	defer ticker.Stop()

	var lastSeen time.Time
	for range ticker.C {
		if !kr.hasSubscribers() {
			continue
		}

		latest := kr.fetchQueueUpdatedAt(ctx)
		if !latest.After(lastSeen) {
			continue
		}
		lastSeen = latest

		items, err := kr.fetchPendingItems(ctx)
		if err != nil {
			kr.logger.Warn("kitchen feed query failed", zap.Error(err))
			kr.broadcast(map[string]any{"type": "orders.refresh", "updatedAt": latest})
			continue
		}
		kr.broadcast(map[string]any{"type": "orders.state", "data": items})
	}
}

func (kr *kitchenRealtime) fetchQueueUpdatedAt(ctx context.Context) time.Time {
	var updated time.Time
	err := kr.db.QueryRow(ctx, `
		select coalesce(max(created_at), 'epoch'::timestamptz)
		from order_details
		where status in ('ordered', 'preparing')
	`).Scan(&updated)
	if err != nil {
		return time.Time{}
	}
	return updated
}

func (kr *kitchenRealtime) fetchPendingItems(ctx context.Context) ([]KitchenOrderItem, error) {
	rows, err := kr.db.Query(ctx, `
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
		return nil, err
	}
	defer rows.Close()

	items := make([]KitchenOrderItem, 0)
	for rows.Next() {
		var item KitchenOrderItem
		var note pgtype.Text
		if err := rows.Scan(&item.ID, &item.RoomNumber, &item.ProductName,
			&item.Quantity, &note, &item.Status, &item.OrderedAt); err != nil {
			return nil, err
		}
		if note.Valid {
			item.Note = &note.String
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// KitchenOrdersWS streams the pending item queue to a kitchen display. The
// token travels in the query string because browsers cannot set websocket
// headers.
func (s *Server) KitchenOrdersWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	token := auth.ParseBearerToken(r.URL.Query().Get("token"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	claims, err := auth.VerifyAccessToken(token, s.Config.JWTSecret)
	if err != nil {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unauthorized"})
		return
	}
	if claims.Role != auth.RoleKitchen && claims.Role != auth.RoleAdmin {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "kitchen access required"})
		return
	}

	s.kitchenRealtime.ensureStarted()
	ctx := r.Context()
	client := &wsRealtimeClient{conn: conn}
	unsubscribe := s.kitchenRealtime.subscribe(client)
	defer unsubscribe()

	// Initial snapshot so the display renders without waiting for a change.
	if items, fetchErr := s.kitchenRealtime.fetchPendingItems(ctx); fetchErr == nil {
		_ = client.writeJSON(map[string]any{"type": "orders.state", "data": items})
	}

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	heartbeat := s.Config.WSHeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := utils.CurrentTimeInTimezone(s.Config.Timezone)
			if err := client.writeJSON(map[string]any{"type": "ping", "time": now}); err != nil {
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
