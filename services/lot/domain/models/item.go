package models

import "github.com/shopspring/decimal"

// Status tracks whether the remote store has acknowledged an item. It is
// local bookkeeping and never serialized to the remote store.
type Status string

const (
	StatusConfirmed   Status = "confirmed"
	StatusUnconfirmed Status = "unconfirmed"
)

// Item is one lot in the inventory table.
type Item struct {
	ID          int      `json:"id"`
	SaleNumber  int      `json:"saleNumber"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Consignor   string   `json:"consignor"`
	Estimate    Estimate `json:"estimate"`
	Status      Status   `json:"-"`
}

// Estimate is the expected hammer price range. Low < High always holds for
// estimates that passed draft validation.
type Estimate struct {
	Low  decimal.Decimal `json:"low"`
	High decimal.Decimal `json:"high"`
}

// Confirmed reports whether the remote store has acknowledged the item.
func (i Item) Confirmed() bool {
	return i.Status != StatusUnconfirmed
}

// Copy returns the item with a fresh identity and the same lot content.
func (i Item) Copy(id, saleNumber int) Item {
	return Item{
		ID:          id,
		SaleNumber:  saleNumber,
		Title:       i.Title,
		Description: i.Description,
		Consignor:   i.Consignor,
		Estimate:    i.Estimate,
		Status:      StatusUnconfirmed,
	}
}
