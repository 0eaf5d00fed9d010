package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"roomdine-order-service/internal/catalog"
	"roomdine-order-service/internal/config"
	"roomdine-order-service/internal/hours"
	"roomdine-order-service/internal/order"
	"roomdine-order-service/internal/queue"
)

type Handler struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Config config.Config

	Orders *order.Router
	Gate   *hours.Gate
	Sync   *catalog.Engine
	Events *queue.Publisher
}
