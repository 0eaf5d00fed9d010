package pos

import "github.com/shopspring/decimal"

// Category is a provider-owned catalog category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is a provider-owned catalog item. Price arrives as a decimal string.
type Product struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Active     bool            `json:"active"`
	ImageRef   string          `json:"imageRef"`
}

// TicketItem is a line appended to a provider-held open ticket.
type TicketItem struct {
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
	Note     string          `json:"note,omitempty"`
}
