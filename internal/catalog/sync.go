package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"roomdine-order-service/internal/pos"
)

const (
	displayOrderStep = 10

	tableCategories = "categories"
	tableProducts   = "products"
)

// Stats counts one reconciliation run. Records present locally but absent
// from the provider snapshot are left alone, so there is no removed counter.
type Stats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

type Result struct {
	Success bool   `json:"success"`
	Stats   Stats  `json:"stats"`
	Message string `json:"message,omitempty"`
}

// Pool is the slice of *pgxpool.Pool the engine needs: transactions for the
// reconciliation itself and direct statements for the post-commit bookkeeping.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Engine reconciles the provider-owned catalog into local storage. Each run
// is all-or-nothing: any error mid-loop rolls the whole transaction back.
// Rows are never deleted, only deactivated by provider data.
type Engine struct {
	pool     Pool
	newStore NewStore
	provider pos.Client
	mirror   *ImageMirror
	name     string
	logger   *zap.Logger
}

func NewEngine(pool Pool, newStore NewStore, provider pos.Client, mirror *ImageMirror, providerName string, logger *zap.Logger) *Engine {
	return &Engine{
		pool:     pool,
		newStore: newStore,
		provider: provider,
		mirror:   mirror,
		name:     providerName,
		logger:   logger,
	}
}

func (e *Engine) SyncCategories(ctx context.Context) Result {
	res := e.reconcileCategories(ctx)
	e.recordStats(ctx, tableCategories, res)
	e.logRun(tableCategories, res)
	return res
}

func (e *Engine) SyncProducts(ctx context.Context) Result {
	res := e.reconcileProducts(ctx)
	e.recordStats(ctx, tableProducts, res)
	e.logRun(tableProducts, res)

	// Image resolution is non-critical: run after the commit and never let a
	// failure taint the sync result.
	if res.Success {
		e.resolveMissingImages(ctx)
	}
	return res
}

func (e *Engine) reconcileCategories(ctx context.Context) Result {
	var stats Stats

	remote, err := e.provider.FetchCategories(ctx)
	if err != nil {
		stats.Errors++
		return Result{Stats: stats, Message: fmt.Sprintf("fetch categories: %v", err)}
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		stats.Errors++
		return Result{Stats: stats, Message: fmt.Sprintf("begin: %v", err)}
	}
	defer tx.Rollback(ctx)

	store := e.newStore(tx)
	local, err := store.Categories(ctx)
	if err != nil {
		stats.Errors++
		return Result{Stats: stats, Message: fmt.Sprintf("load categories: %v", err)}
	}

	byPosID := make(map[string]LocalCategory, len(local))
	var maxOrder int32
	for _, c := range local {
		byPosID[c.PosCategoryID] = c
		if c.DisplayOrder > maxOrder {
			maxOrder = c.DisplayOrder
		}
	}

	for _, rc := range remote {
		id := strings.TrimSpace(rc.ID)
		name := strings.TrimSpace(rc.Name)
		if id == "" || name == "" {
			// Partially-published entries are counted, not failed.
			stats.Skipped++
			e.logger.Debug("skipping incomplete category record",
				zap.String("posCategoryId", rc.ID), zap.String("name", rc.Name))
			continue
		}

		if cur, ok := byPosID[id]; ok {
			if err := store.UpdateCategory(ctx, cur.ID, name, true); err != nil {
				stats.Errors++
				return Result{Stats: stats, Message: fmt.Sprintf("update category %s: %v", id, err)}
			}
			stats.Updated++
			continue
		}

		maxOrder += displayOrderStep
		if err := store.InsertCategory(ctx, id, name, maxOrder); err != nil {
			stats.Errors++
			return Result{Stats: stats, Message: fmt.Sprintf("insert category %s: %v", id, err)}
		}
		stats.Added++
	}

	if err := tx.Commit(ctx); err != nil {
		stats.Errors++
		return Result{Stats: stats, Message: fmt.Sprintf("commit: %v", err)}
	}
	return Result{Success: true, Stats: stats}
}

func (e *Engine) reconcileProducts(ctx context.Context) Result {
	var stats Stats

	remote, err := e.provider.FetchProducts(ctx)
	if err != nil {
		stats.Errors++
		return Result{Stats: stats, Message: fmt.Sprintf("fetch products: %v", err)}
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		stats.Errors++
		return Result{Stats: stats, Message: fmt.Sprintf("begin: %v", err)}
	}
	defer tx.Rollback(ctx)

	store := e.newStore(tx)

	categories, err := store.Categories(ctx)
	if err != nil {
		stats.Errors++
		return Result{Stats: stats, Message: fmt.Sprintf("load categories: %v", err)}
	}
	categoryByPosID := make(map[string]int64, len(categories))
	for _, c := range categories {
		categoryByPosID[c.PosCategoryID] = c.ID
	}

	local, err := store.Products(ctx)
	if err != nil {
		stats.Errors++
		return Result{Stats: stats, Message: fmt.Sprintf("load products: %v", err)}
	}
	byPosID := make(map[string]LocalProduct, len(local))
	var maxOrder int32
	for _, p := range local {
		byPosID[p.PosItemID] = p
		if p.DisplayOrder > maxOrder {
			maxOrder = p.DisplayOrder
		}
	}

	for _, rp := range remote {
		id := strings.TrimSpace(rp.ID)
		name := strings.TrimSpace(rp.Name)
		if id == "" || name == "" {
			stats.Skipped++
			e.logger.Debug("skipping incomplete product record",
				zap.String("posItemId", rp.ID), zap.String("name", rp.Name))
			continue
		}

		categoryID := pgtype.Int8{}
		if localCat, ok := categoryByPosID[strings.TrimSpace(rp.CategoryID)]; ok {
			categoryID = pgtype.Int8{Int64: localCat, Valid: true}
		}

		if cur, ok := byPosID[id]; ok {
			err := store.UpdateProduct(ctx, cur.ID, UpdateProductParams{
				CategoryID: categoryID,
				Name:       name,
				Price:      rp.Price,
				Active:     rp.Active,
			})
			if err != nil {
				stats.Errors++
				return Result{Stats: stats, Message: fmt.Sprintf("update product %s: %v", id, err)}
			}
			stats.Updated++
			continue
		}

		maxOrder += displayOrderStep
		err := store.InsertProduct(ctx, InsertProductParams{
			PosItemID:    id,
			CategoryID:   categoryID,
			Name:         name,
			Price:        rp.Price,
			Active:       rp.Active,
			DisplayOrder: maxOrder,
		})
		if err != nil {
			stats.Errors++
			return Result{Stats: stats, Message: fmt.Sprintf("insert product %s: %v", id, err)}
		}
		stats.Added++
	}

	if err := tx.Commit(ctx); err != nil {
		stats.Errors++
		return Result{Stats: stats, Message: fmt.Sprintf("commit: %v", err)}
	}
	return Result{Success: true, Stats: stats}
}

// resolveMissingImages is the best-effort secondary pass: every failure is
// logged and the next product is tried anyway.
func (e *Engine) resolveMissingImages(ctx context.Context) {
	store := e.newStore(e.pool)
	refs, err := store.ProductsMissingImage(ctx, 100)
	if err != nil {
		e.logger.Warn("image pass: listing products failed", zap.Error(err))
		return
	}

	for _, ref := range refs {
		imageURL, err := e.provider.FetchProductImage(ctx, ref.PosItemID)
		if err != nil || strings.TrimSpace(imageURL) == "" {
			e.logger.Debug("image pass: no provider image",
				zap.String("posItemId", ref.PosItemID), zap.Error(err))
			continue
		}

		if e.mirror != nil {
			mirrored, err := e.mirror.Mirror(ctx, ref.PosItemID, imageURL)
			if err != nil {
				e.logger.Warn("image pass: mirror failed",
					zap.String("posItemId", ref.PosItemID), zap.Error(err))
			} else {
				imageURL = mirrored
			}
		}

		if err := store.SetProductImage(ctx, ref.ID, imageURL); err != nil {
			e.logger.Warn("image pass: save failed",
				zap.Int64("productId", ref.ID), zap.Error(err))
		}
	}
}

// recordStats overwrites the latest snapshot per (provider, table); it is a
// status cache, not a history log.
func (e *Engine) recordStats(ctx context.Context, tableName string, res Result) {
	store := e.newStore(e.pool)
	if err := store.UpsertSyncStats(ctx, e.name, tableName, res); err != nil {
		e.logger.Warn("sync stats upsert failed",
			zap.String("table", tableName), zap.Error(err))
	}
}

func (e *Engine) logRun(tableName string, res Result) {
	fields := []zap.Field{
		zap.String("provider", e.name),
		zap.String("table", tableName),
		zap.Int("added", res.Stats.Added),
		zap.Int("updated", res.Stats.Updated),
		zap.Int("skipped", res.Stats.Skipped),
		zap.Int("errors", res.Stats.Errors),
	}
	if res.Success {
		e.logger.Info("catalog sync completed", fields...)
		return
	}
	e.logger.Error("catalog sync failed", append(fields, zap.String("message", res.Message))...)
}
