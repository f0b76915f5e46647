package board

import (
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/modules/location"
)

// Board is the spot map of one location, grouped by category.
type Board struct {
	Location *location.Location `json:"location"`
	Sections []*Section         `json:"sections"`
}

// Section is one category of spots. Empty categories are omitted.
type Section struct {
	Category  location.Category `json:"type"`
	Title     string            `json:"title"`
	ClassName string            `json:"class_name"`
	Spots     []*Spot           `json:"spots"`
}

// Spot is a board cell with its current occupant, if any.
type Spot struct {
	location.Spot
	Occupant *Occupant `json:"occupant,omitempty"`
}

// Occupant is the active staging record holding a spot.
type Occupant struct {
	StagingID        uuid.UUID `json:"staging_id"`
	PONumber         *int64    `json:"po_num,omitempty"`
	RequestID        string    `json:"request_id"`
	JobNum           string    `json:"job_num"`
	JobName          string    `json:"job_name"`
	JobAddress       string    `json:"job_address"`
	PackNumber       string    `json:"pack_number"`
	ItemDescriptions string    `json:"item_descriptions"`
	Status           string    `json:"status"`
	StagedAt         time.Time `json:"staged_at"`
}

// Dashboard summarizes warehouse activity.
type Dashboard struct {
	Stats          Stats       `json:"stats"`
	RecentActivity []*Activity `json:"recent_activity"`
}

type Stats struct {
	TotalStaged     int `json:"total_staged"`
	ReadyForPickup  int `json:"ready_for_pickup"`
	PendingDelivery int `json:"pending_delivery"`
	OpenPOs         int `json:"open_pos"`
}

// Activity is one recent staging event.
type Activity struct {
	Time      time.Time `json:"time"`
	Status    string    `json:"status"`
	Action    string    `json:"action"`
	RequestID string    `json:"request_id"`
	Location  string    `json:"location"`
	User      string    `json:"user"`
}

var actionLabels = map[string]string{
	"staged":    "Item Staged",
	"ready":     "Ready for Pickup",
	"picked_up": "Picked Up",
	"delivered": "Delivered",
	"returned":  "Returned",
}

// actionLabel names a staging status for the activity feed.
func actionLabel(status string) string {
	if label, ok := actionLabels[status]; ok {
		return label
	}
	return status
}
