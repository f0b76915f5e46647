package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/modules/purchasing"
)

// Kind names a sync batch type.
type Kind string

const (
	KindPurchaseOrders Kind = "purchase_orders"
	KindReceivedItems  Kind = "received_items"
	KindLocations      Kind = "locations"
	KindJobs           Kind = "jobs"
)

// Kinds lists every batch type.
var Kinds = []Kind{KindPurchaseOrders, KindReceivedItems, KindLocations, KindJobs}

// LogStatus is the outcome recorded for a batch.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailed  LogStatus = "failed"
	// LogNever is reported, never stored, for kinds that have not run.
	LogNever LogStatus = "never"
)

// Result counts the effect of one batch.
type Result struct {
	Kind     Kind `json:"kind"`
	Inserted int  `json:"inserted"`
	Updated  int  `json:"updated"`
	Skipped  int  `json:"skipped"`
	Total    int  `json:"total"`

	ItemsInserted         int `json:"items_inserted,omitempty"`
	ItemsUpdated          int `json:"items_updated,omitempty"`
	DistributionsInserted int `json:"distributions_inserted,omitempty"`
	DistributionsUpdated  int `json:"distributions_updated,omitempty"`
	ReceivedItemsLinked   int `json:"received_items_linked,omitempty"`
}

// Affected is the record count written to the sync log.
func (r *Result) Affected() int { return r.Inserted + r.Updated }

// LogEntry is one row of the append-only sync log.
type LogEntry struct {
	ID            uuid.UUID  `json:"id"`
	Kind          Kind       `json:"sync_type"`
	Status        LogStatus  `json:"status"`
	RecordsSynced int        `json:"records_synced"`
	Inserted      int        `json:"inserted"`
	Updated       int        `json:"updated"`
	Skipped       int        `json:"skipped"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     *time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// Counts are the stored entity totals shown on the sync status screen.
type Counts struct {
	PurchaseOrders int `json:"purchase_orders"`
	POItems        int `json:"po_items"`
	ReceivedItems  int `json:"received_items"`
	Locations      int `json:"locations"`
	Jobs           int `json:"jobs"`
}

// Status is the last batch of every kind plus entity counts.
type Status struct {
	LastSync map[Kind]*LogEntry `json:"sync_status"`
	Counts   *Counts            `json:"counts"`
}

// POTree is a validated purchase order with its nested items.
type POTree struct {
	PO    purchasing.PurchaseOrder
	Items []ItemTree
}

type ItemTree struct {
	Item          purchasing.Item
	Distributions []purchasing.Distribution
}

// POOutcome reports what UpsertPurchaseOrder wrote.
type POOutcome struct {
	Inserted              bool
	ItemsInserted         int
	ItemsUpdated          int
	DistributionsInserted int
	DistributionsUpdated  int
	ReceivedItemsLinked   int
}
