package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Text is a free-form ERP field. The ERP exports some codes as numbers and
// others as strings, so both are accepted; null becomes "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// ExtID is an integer ERP key. It may arrive as a number or a numeric
// string; Valid is false when the field was absent or null.
type ExtID struct {
	Value int64
	Valid bool
}

func (id *ExtID) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	if t == "" {
		*id = ExtID{}
		return nil
	}
	v, err := strconv.ParseInt(string(t), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer key %q", t)
	}
	*id = ExtID{Value: v, Valid: true}
	return nil
}

func (id ExtID) MarshalJSON() ([]byte, error) {
	if !id.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(id.Value, 10)), nil
}

// Ptr returns the value as a pointer, nil when absent.
func (id ExtID) Ptr() *int64 {
	if !id.Valid {
		return nil
	}
	v := id.Value
	return &v
}

// PORecord is a purchase order as pushed by the sync agent.
type PORecord struct {
	PONum      ExtID        `json:"ponum"`
	VenNum     Text         `json:"vennum"`
	VendorName Text         `json:"vendor_name"`
	PODate     Text         `json:"podate"`
	Blurb      Text         `json:"blurb"`
	RequestID  Text         `json:"user_5"`
	AttachID   ExtID        `json:"attachid"`
	Status     Text         `json:"status"`
	Items      []ItemRecord `json:"items"`
}

type ItemRecord struct {
	ItemID        ExtID                `json:"itemid"`
	Order         ExtID                `json:"order"`
	ItemNum       Text                 `json:"itemnum"`
	Des           Text                 `json:"des"`
	VenItemNum    Text                 `json:"venitemnum"`
	Outstanding   decimal.Decimal      `json:"outstanding"`
	Received      decimal.Decimal      `json:"received"`
	Unposted      decimal.Decimal      `json:"unposted"`
	Distributions []DistributionRecord `json:"distributions"`
}

type DistributionRecord struct {
	ItemID      ExtID           `json:"itemid"`
	JobNum      Text            `json:"jobnum"`
	JobName     Text            `json:"job_name"`
	PhaseNum    Text            `json:"phasenum"`
	PhaseName   Text            `json:"phase_name"`
	CatNum      Text            `json:"catnum"`
	CatName     Text            `json:"cat_name"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Received    decimal.Decimal `json:"received"`
	Unposted    decimal.Decimal `json:"unposted"`
}

// ReceivedItemRecord is one receiving event.
type ReceivedItemRecord struct {
	SerialNum ExtID           `json:"serialnum"`
	PONum     ExtID           `json:"ponum"`
	ItemNum   Text            `json:"itemnum"`
	JobNum    Text            `json:"jobnum"`
	Date      Text            `json:"date"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type LocationRecord struct {
	LocationNum ExtID `json:"locationnum"`
	Name        Text  `json:"name"`
	Type        ExtID `json:"type"`
}

type JobRecord struct {
	JobNum   Text  `json:"jobnum"`
	Name     Text  `json:"name"`
	Address  Text  `json:"address"`
	City     Text  `json:"city"`
	State    Text  `json:"state"`
	Zip      Text  `json:"zip"`
	Status   Text  `json:"status"`
	AttachID ExtID `json:"attachid"`
}

// Batch envelopes. A nil slice means the key was missing.
type (
	POBatch struct {
		PurchaseOrders []PORecord `json:"purchaseOrders"`
	}
	ReceivedItemBatch struct {
		ReceivedItems []ReceivedItemRecord `json:"receivedItems"`
	}
	LocationBatch struct {
		Locations []LocationRecord `json:"locations"`
	}
	JobBatch struct {
		Jobs []JobRecord `json:"jobs"`
	}
)
