package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FreshnessStatus is the derived freshness classification of a ledger balance.
type FreshnessStatus string

const (
	StatusGood       FreshnessStatus = "Tốt"
	StatusNormal     FreshnessStatus = "Bình thường"
	StatusNearExpiry FreshnessStatus = "Sắp hết hạn"
	StatusExpired    FreshnessStatus = "Hết hạn"
	StatusDamaged    FreshnessStatus = "Hỏng"
)

// FreshnessStatuses lists every status in report order.
var FreshnessStatuses = []FreshnessStatus{StatusGood, StatusNormal, StatusNearExpiry, StatusExpired, StatusDamaged}

const (
	nearExpiryDays = 3
	normalDays     = 7
)

// StatusForDays classifies a balance by its days until expiry.
func StatusForDays(days int) FreshnessStatus {
	switch {
	case days < 0:
		return StatusExpired
	case days <= nearExpiryDays:
		return StatusNearExpiry
	case days <= normalDays:
		return StatusNormal
	default:
		return StatusGood
	}
}

// QualityResult is the outcome of a manual quality inspection.
type QualityResult string

const (
	QualityPassed QualityResult = "Đạt"
	QualityWatch  QualityResult = "Cần theo dõi"
	QualityFailed QualityResult = "Không đạt"
)

// Valid reports whether r is a known inspection result.
func (r QualityResult) Valid() bool {
	switch r {
	case QualityPassed, QualityWatch, QualityFailed:
		return true
	}
	return false
}

// Alert types attached to ledger records.
const (
	AlertNearExpiry    = "near_expiry"
	AlertExpired       = "expired"
	AlertNegativeStock = "negative_stock"
)

// StockSnapshot is a quantity/amount balance with its governing expiry date.
type StockSnapshot struct {
	Quantity   float64    `bson:"quantity" json:"quantity"`
	Amount     float64    `bson:"amount" json:"amount"`
	ExpiryDate *time.Time `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
}

// InventoryInput records what was received on the day.
type InventoryInput struct {
	Quantity   float64    `bson:"quantity" json:"quantity"`
	Amount     float64    `bson:"amount" json:"amount"`
	ReceivedBy string     `bson:"receivedBy,omitempty" json:"receivedBy,omitempty"`
	ExpiryDate *time.Time `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	Notes      string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// InventoryOutput records what left the store on the day.
type InventoryOutput struct {
	Quantity      float64  `bson:"quantity" json:"quantity"`
	Amount        float64  `bson:"amount" json:"amount"`
	DistributedTo []string `bson:"distributedTo,omitempty" json:"distributedTo,omitempty"`
	Notes         string   `bson:"notes,omitempty" json:"notes,omitempty"`
}

// QualityCheck is an optional manual inspection block.
type QualityCheck struct {
	CheckedBy string        `bson:"checkedBy" json:"checkedBy"`
	CheckedAt time.Time     `bson:"checkedAt" json:"checkedAt"`
	Result    QualityResult `bson:"result" json:"result"`
	Notes     string        `bson:"notes,omitempty" json:"notes,omitempty"`
}

// InventoryAlert is a notice raised while deriving a record.
type InventoryAlert struct {
	Type      string    `bson:"type" json:"type"`
	Message   string    `bson:"message" json:"message"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// DailyInventoryRecord is the ledger row for one item on one day.
// EndOfDay and Status are derived; see DeriveEndOfDay.
type DailyInventoryRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Date         time.Time          `bson:"date" json:"date"`
	ItemID       primitive.ObjectID `bson:"lttpItemId" json:"lttpItemId"`
	PreviousDay  StockSnapshot      `bson:"previousDay" json:"previousDay"`
	Input        InventoryInput     `bson:"input" json:"input"`
	Output       InventoryOutput    `bson:"output" json:"output"`
	EndOfDay     StockSnapshot      `bson:"endOfDay" json:"endOfDay"`
	Status       FreshnessStatus    `bson:"status" json:"status"`
	QualityCheck *QualityCheck      `bson:"qualityCheck,omitempty" json:"qualityCheck,omitempty"`
	Alerts       []InventoryAlert   `bson:"alerts,omitempty" json:"alerts,omitempty"`
	CreatedBy    string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy    string             `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	Item *ItemRef `bson:"-" json:"lttpItem,omitempty"`
}

// OpeningFrom returns the previous-day block seeded from a prior day's closing balance.
func OpeningFrom(prior *DailyInventoryRecord) StockSnapshot {
	if prior == nil {
		return StockSnapshot{}
	}
	opening := prior.EndOfDay
	if opening.ExpiryDate != nil {
		expiry := *opening.ExpiryDate
		opening.ExpiryDate = &expiry
	}
	return opening
}

// DeriveEndOfDay returns a copy of rec with EndOfDay and Status recomputed:
// the closing balance is previousDay + input − output, the closing expiry is
// the earliest known expiry, and the status follows days-until-expiry.
// Records without any expiry date keep their current status.
func DeriveEndOfDay(rec DailyInventoryRecord, now time.Time, loc *time.Location) DailyInventoryRecord {
	out := rec
	out.Alerts = append([]InventoryAlert(nil), rec.Alerts...)

	out.EndOfDay = StockSnapshot{
		Quantity:   Balance(rec.PreviousDay.Quantity, rec.Input.Quantity, rec.Output.Quantity, QuantityPlaces),
		Amount:     Balance(rec.PreviousDay.Amount, rec.Input.Amount, rec.Output.Amount, AmountPlaces),
		ExpiryDate: earliest(rec.PreviousDay.ExpiryDate, rec.Input.ExpiryDate),
	}

	if out.EndOfDay.ExpiryDate != nil {
		days := DaysUntil(*out.EndOfDay.ExpiryDate, now, loc)
		out.Status = StatusForDays(days)
		if out.Status != rec.Status {
			switch out.Status {
			case StatusNearExpiry:
				out.Alerts = append(out.Alerts, InventoryAlert{
					Type:      AlertNearExpiry,
					Message:   fmt.Sprintf("Còn %d ngày đến hạn sử dụng", days),
					CreatedAt: now,
				})
			case StatusExpired:
				out.Alerts = append(out.Alerts, InventoryAlert{
					Type:      AlertExpired,
					Message:   "Đã quá hạn sử dụng",
					CreatedAt: now,
				})
			}
		}
	} else if out.Status == "" {
		out.Status = StatusGood
	}

	if out.EndOfDay.Quantity < 0 && rec.EndOfDay.Quantity >= 0 {
		out.Alerts = append(out.Alerts, InventoryAlert{
			Type:      AlertNegativeStock,
			Message:   fmt.Sprintf("Tồn cuối ngày âm: %.3f", out.EndOfDay.Quantity),
			CreatedAt: now,
		})
	}

	return out
}

func earliest(a, b *time.Time) *time.Time {
	var pick *time.Time
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		pick = b
	case b == nil:
		pick = a
	case b.Before(*a):
		pick = b
	default:
		pick = a
	}
	t := *pick
	return &t
}

// InventoryCategorySummary aggregates one category of a day's ledger.
type InventoryCategorySummary struct {
	Category        ItemCategory `json:"category"`
	ItemCount       int          `json:"itemCount"`
	TotalQuantity   float64      `json:"totalQuantity"`
	TotalAmount     float64      `json:"totalAmount"`
	InputAmount     float64      `json:"inputAmount"`
	OutputAmount    float64      `json:"outputAmount"`
	NearExpiryCount int          `json:"nearExpiryCount"`
	ExpiredCount    int          `json:"expiredCount"`
}

// InventorySummary is the per-category rollup of one ledger day.
type InventorySummary struct {
	Date            time.Time                  `json:"date"`
	Categories      []InventoryCategorySummary `json:"categories"`
	TotalItems      int                        `json:"totalItems"`
	TotalAmount     float64                    `json:"totalAmount"`
	NearExpiryCount int                        `json:"nearExpiryCount"`
}

// QualityReport summarises freshness and inspections over a date range.
type QualityReport struct {
	StartDate    time.Time                                `json:"startDate"`
	EndDate      time.Time                                `json:"endDate"`
	TotalRecords int                                      `json:"totalRecords"`
	ByStatus     map[FreshnessStatus]int                  `json:"byStatus"`
	Inspected    int                                      `json:"inspected"`
	ByResult     map[QualityResult]int                    `json:"byResult"`
	ByCategory   map[ItemCategory]map[FreshnessStatus]int `json:"byCategory"`
	AlertCount   int                                      `json:"alertCount"`
}
