package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StationType identifies a processing production line.
type StationType string

const (
	StationTofu        StationType = "tofu"
	StationSalt        StationType = "salt"
	StationBeanSprouts StationType = "bean-sprouts"
	StationLivestock   StationType = "livestock"
	StationPoultry     StationType = "poultry"
	StationSausage     StationType = "sausage"
)

// LineSpec names one material or product a station handles.
type LineSpec struct {
	Code string      `json:"code"`
	Name string      `json:"name"`
	Unit MeasureUnit `json:"unit"`
}

// StationConfig parameterises the generic processing ledger for one station.
type StationConfig struct {
	Type      StationType `json:"type"`
	Name      string      `json:"name"`
	Materials []LineSpec  `json:"materials"`
	Products  []LineSpec  `json:"products"`
}

// Material returns the material spec for code.
func (c StationConfig) Material(code string) (LineSpec, bool) {
	return findLine(c.Materials, code)
}

// Product returns the product spec for code.
func (c StationConfig) Product(code string) (LineSpec, bool) {
	return findLine(c.Products, code)
}

func findLine(lines []LineSpec, code string) (LineSpec, bool) {
	for _, l := range lines {
		if l.Code == code {
			return l, true
		}
	}
	return LineSpec{}, false
}

// Stations is the built-in station catalog.
var Stations = []StationConfig{
	{
		Type:      StationTofu,
		Name:      "Chế biến đậu phụ",
		Materials: []LineSpec{{Code: "soybean", Name: "Đậu tương", Unit: UnitKg}},
		Products: []LineSpec{
			{Code: "tofu", Name: "Đậu phụ", Unit: UnitKg},
			{Code: "okara", Name: "Bã đậu", Unit: UnitKg},
		},
	},
	{
		Type:      StationSalt,
		Name:      "Muối dưa",
		Materials: []LineSpec{{Code: "cabbage", Name: "Rau cải", Unit: UnitKg}},
		Products:  []LineSpec{{Code: "salted-vegetables", Name: "Dưa muối", Unit: UnitKg}},
	},
	{
		Type:      StationBeanSprouts,
		Name:      "Làm giá đỗ",
		Materials: []LineSpec{{Code: "mung-bean", Name: "Đậu xanh", Unit: UnitKg}},
		Products:  []LineSpec{{Code: "bean-sprouts", Name: "Giá đỗ", Unit: UnitKg}},
	},
	{
		Type:      StationLivestock,
		Name:      "Giết mổ gia súc",
		Materials: []LineSpec{{Code: "live-pig", Name: "Lợn hơi", Unit: UnitKg}},
		Products: []LineSpec{
			{Code: "lean-meat", Name: "Thịt nạc", Unit: UnitKg},
			{Code: "bone", Name: "Xương", Unit: UnitKg},
			{Code: "ground-meat", Name: "Thịt xay", Unit: UnitKg},
			{Code: "organs", Name: "Nội tạng", Unit: UnitKg},
		},
	},
	{
		Type:      StationPoultry,
		Name:      "Giết mổ gia cầm",
		Materials: []LineSpec{{Code: "live-poultry", Name: "Gia cầm hơi", Unit: UnitKg}},
		Products: []LineSpec{
			{Code: "poultry-meat", Name: "Thịt gia cầm", Unit: UnitKg},
			{Code: "giblets", Name: "Lòng mề", Unit: UnitKg},
		},
	},
	{
		Type: StationSausage,
		Name: "Làm giò chả",
		Materials: []LineSpec{
			{Code: "lean-meat", Name: "Thịt nạc", Unit: UnitKg},
			{Code: "fat", Name: "Mỡ", Unit: UnitKg},
		},
		Products: []LineSpec{
			{Code: "pork-roll", Name: "Giò lụa", Unit: UnitKg},
			{Code: "cinnamon-pork", Name: "Chả quế", Unit: UnitKg},
		},
	},
}

// LookupStation returns the configuration of a station type.
func LookupStation(t StationType) (StationConfig, bool) {
	for _, s := range Stations {
		if s.Type == t {
			return s, true
		}
	}
	return StationConfig{}, false
}

// MaterialLine is one raw material consumed on the day.
type MaterialLine struct {
	Code         string  `bson:"code" json:"code"`
	Name         string  `bson:"name" json:"name"`
	Quantity     float64 `bson:"quantity" json:"quantity"`
	UnitPrice    float64 `bson:"unitPrice" json:"unitPrice"`
	Cost         float64 `bson:"cost" json:"cost"`
	QualityGrade string  `bson:"qualityGrade,omitempty" json:"qualityGrade,omitempty"`
}

// ProductLine is one finished product's daily flow. CarriedOver is the prior
// day's unsold remainder and is kept apart from Produced so it is not counted
// as revenue again.
type ProductLine struct {
	Code         string  `bson:"code" json:"code"`
	Name         string  `bson:"name" json:"name"`
	CarriedOver  float64 `bson:"carriedOver" json:"carriedOver"`
	Produced     float64 `bson:"produced" json:"produced"`
	Collected    float64 `bson:"collected" json:"collected"`
	ActualOutput float64 `bson:"actualOutput" json:"actualOutput"`
	Remaining    float64 `bson:"remaining" json:"remaining"`
	UnitPrice    float64 `bson:"unitPrice" json:"unitPrice"`
	Value        float64 `bson:"value" json:"value"`
}

// Financial is the derived cost/value block of a processing day.
type Financial struct {
	TotalInputCost   float64 `bson:"totalInputCost" json:"totalInputCost"`
	TotalOutputValue float64 `bson:"totalOutputValue" json:"totalOutputValue"`
	Profit           float64 `bson:"profit" json:"profit"`
	ProfitMargin     float64 `bson:"profitMargin" json:"profitMargin"`
}

// ProcessingRecord is one station's ledger row for one unit on one day.
type ProcessingRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Station   StationType        `bson:"station" json:"station"`
	Date      time.Time          `bson:"date" json:"date"`
	UnitID    primitive.ObjectID `bson:"unitId" json:"unitId"`
	Materials []MaterialLine     `bson:"materials" json:"materials"`
	Products  []ProductLine      `bson:"products" json:"products"`
	OtherCost float64            `bson:"otherCost" json:"otherCost"`
	Financial Financial          `bson:"financial" json:"financial"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedBy string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy string             `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Product returns the named product line, or nil.
func (r *ProcessingRecord) Product(code string) *ProductLine {
	for i := range r.Products {
		if r.Products[i].Code == code {
			return &r.Products[i]
		}
	}
	return nil
}

// Remaining returns the unsold remainder per product code.
func (r *ProcessingRecord) Remaining() map[string]float64 {
	out := make(map[string]float64, len(r.Products))
	for _, p := range r.Products {
		out[p.Code] = p.Remaining
	}
	return out
}

// DeriveProcessing returns a copy of rec with every derived line value and
// the financial block recomputed.
func DeriveProcessing(rec ProcessingRecord) ProcessingRecord {
	out := rec
	out.Materials = append([]MaterialLine(nil), rec.Materials...)
	out.Products = append([]ProductLine(nil), rec.Products...)

	costs := make([]float64, 0, len(out.Materials)+1)
	for i := range out.Materials {
		m := &out.Materials[i]
		m.Cost = Amount(m.Quantity, m.UnitPrice)
		costs = append(costs, m.Cost)
	}
	costs = append(costs, out.OtherCost)

	values := make([]float64, 0, len(out.Products))
	for i := range out.Products {
		p := &out.Products[i]
		p.Collected = Sum(QuantityPlaces, p.CarriedOver, p.Produced)
		p.Remaining = RemainingAfter(p.Collected, p.ActualOutput)
		p.Value = Amount(p.Produced, p.UnitPrice)
		values = append(values, p.Value)
	}

	out.Financial = ComputeFinancial(Sum(AmountPlaces, costs...), Sum(AmountPlaces, values...))
	return out
}

// RemainingAfter returns the stock left after output, never negative.
func RemainingAfter(collected, output float64) float64 {
	remaining := Balance(collected, 0, output, QuantityPlaces)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ComputeFinancial derives profit and margin; the margin is 0 without cost.
func ComputeFinancial(inputCost, outputValue float64) Financial {
	profit := Balance(outputValue, 0, inputCost, AmountPlaces)
	return Financial{
		TotalInputCost:   inputCost,
		TotalOutputValue: outputValue,
		Profit:           profit,
		ProfitMargin:     Percent(profit, inputCost),
	}
}

// RollupPeriod selects the window of a station rollup.
type RollupPeriod string

const (
	PeriodDay   RollupPeriod = "day"
	PeriodWeek  RollupPeriod = "week"
	PeriodMonth RollupPeriod = "month"
)

// Bounds returns the inclusive first and last day of the period containing anchor.
func (p RollupPeriod) Bounds(anchor time.Time) (time.Time, time.Time, bool) {
	switch p {
	case PeriodDay:
		return anchor, anchor, true
	case PeriodWeek:
		start := WeekStart(anchor)
		return start, start.AddDate(0, 0, 6), true
	case PeriodMonth:
		start := MonthStart(anchor)
		return start, start.AddDate(0, 1, -1), true
	}
	return time.Time{}, time.Time{}, false
}

// ProductFlow is a product's projected flow for one day or a whole period.
type ProductFlow struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	CarriedOver  float64 `json:"carriedOver"`
	Produced     float64 `json:"produced"`
	Collected    float64 `json:"collected"`
	ActualOutput float64 `json:"actualOutput"`
	Remaining    float64 `json:"remaining"`
	Value        float64 `json:"value"`
}

// RollupDay is one projected day of a station rollup.
type RollupDay struct {
	Date      time.Time     `json:"date"`
	Recorded  bool          `json:"recorded"`
	Products  []ProductFlow `json:"products"`
	Financial Financial     `json:"financial"`
}

// StationRollup projects a station's ledger across a period.
type StationRollup struct {
	Station   StationType        `json:"station"`
	UnitID    primitive.ObjectID `json:"unitId"`
	Period    RollupPeriod       `json:"period"`
	StartDate time.Time          `json:"startDate"`
	EndDate   time.Time          `json:"endDate"`
	Days      []RollupDay        `json:"days"`
	Products  []ProductFlow      `json:"products"`
	Financial Financial          `json:"financial"`
}

// ProjectRollup chains the station's days across [start, end]. Each day's
// carried-over stock is the previous projected day's remainder (opening for
// the first day); days with no record carry stock forward with no production.
// Carried stock never contributes to value.
func ProjectRollup(cfg StationConfig, unitID primitive.ObjectID, period RollupPeriod, start, end time.Time, opening map[string]float64, records []ProcessingRecord) StationRollup {
	byDate := make(map[string]ProcessingRecord, len(records))
	for _, r := range records {
		byDate[r.Date.UTC().Format(DateLayout)] = r
	}

	rollup := StationRollup{
		Station:   cfg.Type,
		UnitID:    unitID,
		Period:    period,
		StartDate: start,
		EndDate:   end,
	}

	carry := make(map[string]float64, len(cfg.Products))
	for _, p := range cfg.Products {
		carry[p.Code] = opening[p.Code]
	}

	totals := make([]ProductFlow, len(cfg.Products))
	for i, p := range cfg.Products {
		totals[i] = ProductFlow{Code: p.Code, Name: p.Name, CarriedOver: carry[p.Code]}
	}

	var costs, values []float64
	for day := start; !day.After(end); day = NextDay(day) {
		rec, recorded := byDate[day.Format(DateLayout)]
		flows := make([]ProductFlow, len(cfg.Products))
		var dayValues []float64
		for i, spec := range cfg.Products {
			flow := ProductFlow{Code: spec.Code, Name: spec.Name, CarriedOver: carry[spec.Code]}
			if recorded {
				if line := rec.Product(spec.Code); line != nil {
					flow.Produced = line.Produced
					flow.ActualOutput = line.ActualOutput
					flow.Value = Amount(line.Produced, line.UnitPrice)
				}
			}
			flow.Collected = Sum(QuantityPlaces, flow.CarriedOver, flow.Produced)
			flow.Remaining = RemainingAfter(flow.Collected, flow.ActualOutput)
			carry[spec.Code] = flow.Remaining
			flows[i] = flow
			dayValues = append(dayValues, flow.Value)

			totals[i].Produced = Sum(QuantityPlaces, totals[i].Produced, flow.Produced)
			totals[i].ActualOutput = Sum(QuantityPlaces, totals[i].ActualOutput, flow.ActualOutput)
			totals[i].Value = Sum(AmountPlaces, totals[i].Value, flow.Value)
			totals[i].Remaining = flow.Remaining
		}

		dayCost := 0.0
		if recorded {
			dayCost = rec.Financial.TotalInputCost
		}
		dayValue := Sum(AmountPlaces, dayValues...)
		costs = append(costs, dayCost)
		values = append(values, dayValue)

		rollup.Days = append(rollup.Days, RollupDay{
			Date:      day,
			Recorded:  recorded,
			Products:  flows,
			Financial: ComputeFinancial(dayCost, dayValue),
		})
	}

	for i := range totals {
		totals[i].Collected = Sum(QuantityPlaces, totals[i].CarriedOver, totals[i].Produced)
	}
	rollup.Products = totals
	rollup.Financial = ComputeFinancial(Sum(AmountPlaces, costs...), Sum(AmountPlaces, values...))
	return rollup
}
