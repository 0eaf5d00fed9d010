package httpapi

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"roomdine-order-service/internal/auth"
	"roomdine-order-service/internal/config"
	"roomdine-order-service/internal/http/handlers"
	"roomdine-order-service/internal/middleware"
	"roomdine-order-service/internal/ws"
)

func NewRouter(h *handlers.Handler, logger *zap.Logger, cfg config.Config, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(middleware.RequestID())

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Room-Token",
				"Cache-Control",
				"Pragma",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/guest", func(r chi.Router) {
		r.Get("/menu/categories", h.GuestMenuCategories)
		r.Get("/menu/products", h.GuestMenuProducts)
		r.Get("/menu/categories/{categoryId}/products", h.GuestMenuProducts)
		r.Post("/orders", h.GuestOrderCreate)
		r.Get("/orders/{orderId}", h.GuestOrderDetail)
		r.Get("/rooms/{roomNumber}/orders", h.GuestOrderHistory)
	})

	r.Route("/api/kitchen", func(r chi.Router) {
		r.Use(middleware.StaffAuth(cfg.JWTSecret, auth.RoleKitchen))
		r.Get("/items", h.KitchenActiveItems)
		r.Patch("/items/{itemId}/status", h.KitchenItemStatusUpdate)
		r.Get("/notifications", h.KitchenNotifications)
		r.Post("/notifications/{notificationId}/ack", h.KitchenNotificationAck)
	})

	r.Route("/api/frontdesk", func(r chi.Router) {
		r.Use(middleware.StaffAuth(cfg.JWTSecret, auth.RoleFrontDesk))
		r.Post("/rooms/{roomNumber}/checkout", h.FrontDeskCheckout)
	})

	r.Route("/api/cron", func(r chi.Router) {
		r.Use(middleware.CronAuth(cfg.CronSecret))
		r.Post("/sync/categories", h.CronSyncCategories)
		r.Post("/sync/products", h.CronSyncProducts)
		r.Get("/sync/stats", h.SyncStats)
	})

	if wsServer != nil {
		r.Get("/ws/kitchen/orders", wsServer.KitchenOrdersWS)
	}

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
