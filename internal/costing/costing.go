// Package costing holds the shop's cost arithmetic: board feet, unit prices,
// finish consumption and project cost roll-ups. Every price shown anywhere in
// Grain is computed here.
package costing

import "math"

// Kind identifies which cost bucket a line falls into
type Kind string

const (
	KindLumber     Kind = "lumber"
	KindFinish     Kind = "finish"
	KindSheetGood  Kind = "sheet_good"
	KindConsumable Kind = "consumable"
	KindTool       Kind = "tool"
)

// BoardFeet returns the board footage of quantity boards. Width and thickness
// are in inches.
func BoardFeet(width, thickness, lengthInches, quantity float64) float64 {
	return width * thickness * lengthInches / 144 * quantity
}

// UnitPrice derives the price of one unit from a package price
func UnitPrice(packagePrice, packageQuantity float64) float64 {
	if packageQuantity <= 0 {
		return 0
	}
	return packagePrice / packageQuantity
}

// FinishCost is the share of a finish container consumed by a project
func FinishCost(containerPrice, percentage float64) float64 {
	return containerPrice * percentage / 100
}

// LaborCost prices the hours spent on a project
func LaborCost(hours, hourlyRate float64) float64 {
	return hours * hourlyRate
}

// RoundMoney rounds to cents, half away from zero
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// Line is one priced entry of a project
type Line struct {
	Kind     Kind    `json:"kind"`
	ItemID   string  `json:"itemId"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	UnitCost float64 `json:"unitCost"`
	Cost     float64 `json:"cost"`
}

// Breakdown is the full cost roll-up of a project
type Breakdown struct {
	Lines          []Line  `json:"lines"`
	BoardFeet      float64 `json:"boardFeet"`
	MaterialCost   float64 `json:"materialCost"`
	FinishCost     float64 `json:"finishCost"`
	SheetGoodCost  float64 `json:"sheetGoodCost"`
	ConsumableCost float64 `json:"consumableCost"`
	LaborCost      float64 `json:"laborCost"`
	MiscCost       float64 `json:"miscCost"`
	Total          float64 `json:"total"`
	SalePrice      float64 `json:"salePrice"`
	Profit         float64 `json:"profit"`
	Margin         float64 `json:"margin"`
}

// Summarize totals lines into a breakdown. Sums run on unrounded line costs;
// only the returned figures are rounded.
func Summarize(lines []Line, laborHours, hourlyRate, misc, salePrice float64) Breakdown {
	b := Breakdown{Lines: make([]Line, 0, len(lines))}
	var material, finish, sheet, consumable float64

	for _, l := range lines {
		switch l.Kind {
		case KindLumber:
			material += l.Cost
			b.BoardFeet += l.Quantity
		case KindFinish:
			finish += l.Cost
		case KindSheetGood:
			sheet += l.Cost
		case KindConsumable:
			consumable += l.Cost
		}

		l.UnitCost = RoundMoney(l.UnitCost)
		l.Cost = RoundMoney(l.Cost)
		b.Lines = append(b.Lines, l)
	}

	labor := LaborCost(laborHours, hourlyRate)
	total := material + finish + sheet + consumable + labor + misc

	b.BoardFeet = math.Round(b.BoardFeet*1000) / 1000
	b.MaterialCost = RoundMoney(material)
	b.FinishCost = RoundMoney(finish)
	b.SheetGoodCost = RoundMoney(sheet)
	b.ConsumableCost = RoundMoney(consumable)
	b.LaborCost = RoundMoney(labor)
	b.MiscCost = RoundMoney(misc)
	b.Total = RoundMoney(total)

	if salePrice > 0 {
		profit := salePrice - total
		b.SalePrice = RoundMoney(salePrice)
		b.Profit = RoundMoney(profit)
		b.Margin = math.Round(profit/salePrice*10000) / 100
	}

	return b
}
