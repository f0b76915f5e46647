package staging

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Status is the lifecycle state of a staging record.
type Status string

const (
	StatusStaged    Status = "staged"
	StatusReady     Status = "ready"
	StatusPickedUp  Status = "picked_up"
	StatusDelivered Status = "delivered"
	StatusReturned  Status = "returned"
)

// validTransitions defines the allowed state machine transitions for staging records.
// Nothing leads back to staged.
var validTransitions = map[Status][]Status{
	StatusStaged:    {StatusReady, StatusPickedUp, StatusDelivered, StatusReturned},
	StatusReady:     {StatusPickedUp, StatusDelivered, StatusReturned},
	StatusPickedUp:  {},
	StatusDelivered: {},
	StatusReturned:  {},
}

// CanTransition returns true if the transition from current to next is valid.
func CanTransition(current, next Status) bool {
	allowed, ok := validTransitions[current]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == next {
			return true
		}
	}
	return false
}

// Active reports whether a record in this status occupies its spot.
func (s Status) Active() bool { return s == StatusStaged || s == StatusReady }

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	allowed, ok := validTransitions[s]
	return ok && len(allowed) == 0
}

// directStatuses are the statuses a user may set without a delivery.
var directStatuses = map[Status]bool{
	StatusReady:     true,
	StatusReturned:  true,
	StatusDelivered: true,
}

// Record is a pack of material staged at a spot or a custom location.
type Record struct {
	ID               uuid.UUID  `json:"id"`
	POID             *uuid.UUID `json:"po_id,omitempty"`
	PONumber         *int64     `json:"po_num,omitempty"`
	RequestID        string     `json:"request_id"`
	JobNum           string     `json:"job_num"`
	JobName          string     `json:"job_name"`
	JobAddress       string     `json:"job_address"`
	MultiJob         bool       `json:"multi_job"`
	SpotID           *uuid.UUID `json:"spot_id,omitempty"`
	SpotCode         string     `json:"spot_code,omitempty"`
	SpotName         string     `json:"spot_name,omitempty"`
	CustomLocation   *string    `json:"custom_location,omitempty"`
	PackNumber       string     `json:"pack_number"`
	ItemDescriptions string     `json:"item_descriptions"`
	Notes            string     `json:"notes"`
	Status           Status     `json:"status"`
	StagedBy         *uuid.UUID `json:"staged_by,omitempty"`
	StagedByName     string     `json:"staged_by_name,omitempty"`
	StagedAt         time.Time  `json:"staged_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Lines            []*Line    `json:"lines,omitempty"`
}

// Line is the quantity of one PO item committed to a record.
type Line struct {
	ID       uuid.UUID       `json:"id"`
	RecordID uuid.UUID       `json:"staging_record_id"`
	ItemID   uuid.UUID       `json:"po_item_id"`
	Quantity decimal.Decimal `json:"quantity"`

	ItemNum     string `json:"item_num,omitempty"`
	Description string `json:"description,omitempty"`
	JobNum      string `json:"job_num,omitempty"`
	JobName     string `json:"job_name,omitempty"`
}

// summarize fills the job snapshot from the first line and the item
// description summary from all lines. A pack spanning several jobs keeps
// the first job and sets MultiJob.
func (r *Record) summarize() {
	parts := make([]string, 0, len(r.Lines))
	for i, l := range r.Lines {
		if i == 0 {
			r.JobNum, r.JobName = l.JobNum, l.JobName
		} else if l.JobNum != r.JobNum {
			r.MultiJob = true
		}
		label := l.ItemNum
		if l.Description != "" {
			if label != "" {
				label += " - "
			}
			label += l.Description
		}
		parts = append(parts, label+" (qty "+l.Quantity.String()+")")
	}
	r.ItemDescriptions = strings.Join(parts, ", ")
}

func (r *Record) location() string {
	if r.CustomLocation != nil {
		return *r.CustomLocation
	}
	return r.SpotCode
}

// Delivery is the signed confirmation that a pack left the warehouse.
type Delivery struct {
	ID                 uuid.UUID  `json:"id"`
	RecordID           uuid.UUID  `json:"staging_record_id"`
	DeliveryDate       string     `json:"delivery_date"`
	SignerName         string     `json:"signer_name"`
	SignerInitial      string     `json:"signer_first_initial"`
	SignerLastName     string     `json:"signer_last_name"`
	SignatureData      string     `json:"-"`
	Notes              string     `json:"notes,omitempty"`
	DeliveredBy        *uuid.UUID `json:"delivered_by,omitempty"`
	AttachmentUploaded bool       `json:"attachment_uploaded"`
	AttachmentPath     *string    `json:"attachment_path,omitempty"`
	SignedAt           time.Time  `json:"signed_at"`
}

// DeliverySummary is a delivery with its staging snapshot, as shown in
// delivery history.
type DeliverySummary struct {
	Delivery
	RequestID        string `json:"request_id"`
	JobNum           string `json:"job_num"`
	JobName          string `json:"job_name"`
	PackNumber       string `json:"pack_number"`
	ItemDescriptions string `json:"item_descriptions"`
	DeliveredByName  string `json:"delivered_by_name"`
}

// SplitSignerName returns the upper-cased first initial and last name of a
// signer. A single-word name is its own last name.
func SplitSignerName(name string) (initial, lastName string) {
	fields := strings.Fields(norm.NFC.String(name))
	if len(fields) == 0 {
		return "", ""
	}
	upper := cases.Upper(language.Und)
	r, size := utf8.DecodeRuneInString(fields[0])
	if r == utf8.RuneError {
		size = 1
	}
	return upper.String(fields[0][:size]), upper.String(fields[len(fields)-1])
}

// StageRequest is the payload for POST /api/v1/staging.
type StageRequest struct {
	POID           *uuid.UUID    `json:"po_id"`
	Items          []LineRequest `json:"items"`
	SpotID         *uuid.UUID    `json:"spot_id,omitempty"`
	CustomLocation string        `json:"custom_location,omitempty"`
	PackNumber     string        `json:"pack_number,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	RequestID      string        `json:"request_id,omitempty"`
}

type LineRequest struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// UpdateStatusRequest is the payload for PATCH /api/v1/staging/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// DeliveryRequest is the payload for POST /api/v1/deliveries.
type DeliveryRequest struct {
	RecordID   uuid.UUID `json:"staging_record_id"`
	SignerName string    `json:"signer_name"`
	Signature  string    `json:"signature_data"`
	Notes      string    `json:"notes,omitempty"`
}
