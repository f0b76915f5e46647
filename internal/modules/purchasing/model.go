package purchasing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/materialive/internal/apperr"
)

// POStatus is the lifecycle state of a purchase order as reported by the ERP.
type POStatus string

const (
	POOpen     POStatus = "open"
	POPartial  POStatus = "partial"
	POReceived POStatus = "received"
	POClosed   POStatus = "closed"
)

// ParsePOStatus normalizes an ERP status. An empty status means open.
func ParsePOStatus(s string) (POStatus, error) {
	switch st := POStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return POOpen, nil
	case POOpen, POPartial, POReceived, POClosed:
		return st, nil
	default:
		return "", apperr.InvalidInput("unknown purchase order status %q", s)
	}
}

// PurchaseOrder mirrors an ERP purchase order.
type PurchaseOrder struct {
	ID         uuid.UUID `json:"id"`
	Number     int64     `json:"ce_ponum"`
	VendorNum  string    `json:"vendor_num"`
	VendorName string    `json:"vendor_name"`
	PODate     string    `json:"po_date"`
	Blurb      string    `json:"blurb"`
	RequestID  string    `json:"request_id"`
	AttachID   *int64    `json:"ce_attachid,omitempty"`
	Status     POStatus  `json:"status"`
	SyncedAt   time.Time `json:"synced_at"`
}

// Item is one line of a purchase order.
type Item struct {
	ID            uuid.UUID       `json:"id"`
	POID          uuid.UUID       `json:"po_id"`
	ExternalID    int64           `json:"ce_itemid"`
	Order         int             `json:"item_order"`
	ItemNum       string          `json:"item_num"`
	Description   string          `json:"description"`
	VendorItemNum string          `json:"vendor_item_num"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Received      decimal.Decimal `json:"received"`
	Unposted      decimal.Decimal `json:"unposted"`
	SyncedAt      time.Time       `json:"synced_at"`
}

// Distribution is a job/phase/category cost allocation of an item.
type Distribution struct {
	ID          uuid.UUID       `json:"id"`
	ItemID      uuid.UUID       `json:"po_item_id"`
	ExternalID  int64           `json:"ce_itemid"`
	Occurrence  int             `json:"occurrence"`
	Order       int             `json:"dist_order"`
	JobNum      string          `json:"job_num"`
	JobName     string          `json:"job_name"`
	PhaseNum    string          `json:"phase_num"`
	PhaseName   string          `json:"phase_name"`
	CatNum      string          `json:"cat_num"`
	CatName     string          `json:"cat_name"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Received    decimal.Decimal `json:"received"`
	Unposted    decimal.Decimal `json:"unposted"`
}

// ReceivedItem is a receiving event reported by the ERP.
type ReceivedItem struct {
	ID           uuid.UUID       `json:"id"`
	SerialNum    int64           `json:"ce_serialnum"`
	POID         *uuid.UUID      `json:"po_id,omitempty"`
	PONumber     *int64          `json:"ce_ponum,omitempty"`
	ItemNum      string          `json:"item_num"`
	JobNum       string          `json:"job_num"`
	ReceivedDate string          `json:"received_date"`
	Quantity     decimal.Decimal `json:"quantity"`
	SyncedAt     time.Time       `json:"synced_at"`
}

// Job is an ERP job a distribution can be charged to.
type Job struct {
	ID       uuid.UUID `json:"id"`
	JobNum   string    `json:"job_num"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	City     string    `json:"city"`
	State    string    `json:"state"`
	Zip      string    `json:"zip"`
	Status   string    `json:"status"`
	AttachID *int64    `json:"ce_attachid,omitempty"`
	SyncedAt time.Time `json:"synced_at"`
}

// FullAddress joins the address parts that are present.
func (j *Job) FullAddress() string {
	var parts []string
	for _, p := range []string{j.Address, j.City, strings.TrimSpace(j.State + " " + j.Zip)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// POSummary is a purchase order row in the open-PO list.
type POSummary struct {
	PurchaseOrder
	ItemsCount int `json:"items_count"`
}

// ItemAvailability is an item annotated with how much of it can still be staged.
type ItemAvailability struct {
	Item
	JobNum    string          `json:"job_num"`
	JobName   string          `json:"job_name"`
	Staged    decimal.Decimal `json:"staged"`
	Available decimal.Decimal `json:"available"`
}
