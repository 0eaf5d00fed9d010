package handlers

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"roomdine-order-service/internal/utils"
	"roomdine-order-service/pkg/response"
)

type menuCategory struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	DisplayOrder  int32   `json:"displayOrder"`
	IsOpen        bool    `json:"isOpen"`
	OpenOrderTime *string `json:"openOrderTime,omitempty"`
	LastOrderTime *string `json:"lastOrderTime,omitempty"`
}

type menuProduct struct {
	ID           int64   `json:"id"`
	CategoryID   *int64  `json:"categoryId,omitempty"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	DisplayOrder int32   `json:"displayOrder"`
	InStock      bool    `json:"inStock"`
	StockQty     *int32  `json:"stockQty,omitempty"`
	IsPickup     bool    `json:"isPickup"`
	Label1       *string `json:"label1,omitempty"`
	Label2       *string `json:"label2,omitempty"`
	ImageURL     *string `json:"imageUrl,omitempty"`
}

// GuestMenuCategories lists the active categories with their live ordering
// availability so the client can grey out closed sections.
func (h *Handler) GuestMenuCategories(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query(r.Context(), `
		select id, name, display_order, open_order_time, last_order_time
		from categories
		where is_active
		order by display_order, id
	`)
	if err != nil {
		h.Logger.Error("menu categories query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}
	defer rows.Close()

	categories := make([]menuCategory, 0)
	for rows.Next() {
		var c menuCategory
		var openTime, lastTime pgtype.Text
		if err := rows.Scan(&c.ID, &c.Name, &c.DisplayOrder, &openTime, &lastTime); err != nil {
			h.Logger.Error("menu categories scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
			return
		}
		if openTime.Valid {
			c.OpenOrderTime = &openTime.String
		}
		if lastTime.Valid {
			c.LastOrderTime = &lastTime.String
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		h.Logger.Error("menu categories iteration failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	for i := range categories {
		categories[i].IsOpen = h.Gate.IsCategoryOpen(r.Context(), categories[i].ID)
	}

	response.Success(w, map[string]any{"categories": categories})
}

// GuestMenuProducts lists active products, optionally scoped to a category.
func (h *Handler) GuestMenuProducts(w http.ResponseWriter, r *http.Request) {
	query := `
		select id, category_id, name, price, display_order, stock_qty,
		       is_pickup, label1, label2, image_url
		from products
		where is_active
	`
	args := []any{}
	if categoryID, err := readPathInt64(r, "categoryId"); err == nil {
		query += ` and category_id = $1`
		args = append(args, categoryID)
	}
	query += ` order by display_order, id`

	rows, err := h.DB.Query(r.Context(), query, args...)
	if err != nil {
		h.Logger.Error("menu products query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}
	defer rows.Close()

	products := make([]menuProduct, 0)
	for rows.Next() {
		var p menuProduct
		var categoryID pgtype.Int8
		var price pgtype.Numeric
		var stockQty pgtype.Int4
		var label1, label2, imageURL pgtype.Text
		if err := rows.Scan(&p.ID, &categoryID, &p.Name, &price, &p.DisplayOrder,
			&stockQty, &p.IsPickup, &label1, &label2, &imageURL); err != nil {
			h.Logger.Error("menu products scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
			return
		}
		p.Price = utils.NumericToFloat64(price)
		if categoryID.Valid {
			p.CategoryID = &categoryID.Int64
		}
		// A NULL quantity means the product is not stock-tracked and always
		// offered; zero means sold out.
		p.InStock = !stockQty.Valid || stockQty.Int32 > 0
		if stockQty.Valid {
			p.StockQty = &stockQty.Int32
		}
		if label1.Valid {
			p.Label1 = &label1.String
		}
		if label2.Valid {
			p.Label2 = &label2.String
		}
		if imageURL.Valid {
			p.ImageURL = &imageURL.String
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		h.Logger.Error("menu products iteration failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	response.Success(w, map[string]any{"products": products})
}
