package location

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category groups spots on the board.
type Category string

const (
	CategoryWillCallConstruction Category = "will_call_construction"
	CategoryWillCallService      Category = "will_call_service"
	CategoryStaging              Category = "staging"
	CategoryDelivery             Category = "delivery"
	CategoryLongTerm             Category = "long_term"
	CategoryPendingReturns       Category = "pending_returns"
)

// Categories lists every category in board display order.
var Categories = []Category{
	CategoryWillCallConstruction,
	CategoryWillCallService,
	CategoryStaging,
	CategoryDelivery,
	CategoryLongTerm,
	CategoryPendingReturns,
}

var categoryTitles = map[Category]string{
	CategoryWillCallConstruction: "Will Call - Construction",
	CategoryWillCallService:      "Will Call - Service",
	CategoryStaging:              "Staging in Warehouse",
	CategoryDelivery:             "Customer Delivery",
	CategoryLongTerm:             "Long Term Storage",
	CategoryPendingReturns:       "Pending Returns",
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryTitles[c]
	return ok
}

// Title is the board heading for c.
func (c Category) Title() string {
	return categoryTitles[c]
}

// CategoryOrderSQL returns a SQL expression sorting column by board order.
func CategoryOrderSQL(column string) string {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(column)
	for i, c := range Categories {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", c, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(Categories))
	return b.String()
}

// WarehouseLocationType is the only external location type that is synced.
const WarehouseLocationType = 1

// Location is a physical warehouse.
type Location struct {
	ID       uuid.UUID  `json:"id"`
	Number   *int64     `json:"ce_locationnum,omitempty"`
	Name     string     `json:"name"`
	Type     int        `json:"type"`
	Active   bool       `json:"active"`
	SyncedAt *time.Time `json:"synced_at,omitempty"`
}

// Spot is a physical position inside a location where a pack can be staged.
type Spot struct {
	ID         uuid.UUID `json:"id"`
	LocationID uuid.UUID `json:"location_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Category   Category  `json:"category"`
	GridRow    int       `json:"grid_row"`
	GridCol    int       `json:"grid_col"`
	Active     bool      `json:"active"`
}
