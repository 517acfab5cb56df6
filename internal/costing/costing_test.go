package costing

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestToInches(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		unit  LengthUnit
		want  float64
	}{
		{"inches", 96, UnitInch, 96},
		{"empty unit means inches", 10, "", 10},
		{"feet", 8, UnitFoot, 96},
		{"yards", 2, UnitYard, 72},
		{"vara", 3, UnitVara, 99},
		{"centimeters", 2.54, UnitCenti, 1},
		{"meters", 1, UnitMeter, 39.37007874015748},
		{"upper case", 1, "FT", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInches(tt.value, tt.unit)
			if err != nil {
				t.Fatalf("ToInches returned error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ToInches(%v, %q) = %v, want %v", tt.value, tt.unit, got, tt.want)
			}
		})
	}
}

func TestToInchesUnknownUnit(t *testing.T) {
	if _, err := ToInches(1, "furlong"); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}

func TestBoardFeet(t *testing.T) {
	// 1" x 12" x 12" is one board foot by definition
	if got := BoardFeet(12, 1, 12, 1); got != 1 {
		t.Errorf("BoardFeet(12,1,12,1) = %v, want 1", got)
	}

	// 6" x 2" x 8ft x 3 boards = 24 bf
	length, _ := ToInches(8, UnitFoot)
	if got := BoardFeet(6, 2, length, 3); got != 24 {
		t.Errorf("BoardFeet(6,2,96,3) = %v, want 24", got)
	}

	// 4" x 1" x 1 vara = 33/36 bf
	length, _ = ToInches(1, UnitVara)
	want := 4.0 * 1 * 33 / 144
	if got := BoardFeet(4, 1, length, 1); math.Abs(got-want) > 1e-12 {
		t.Errorf("BoardFeet for one vara = %v, want %v", got, want)
	}
}

func TestUnitPrice(t *testing.T) {
	if got := UnitPrice(12.5, 100); got != 0.125 {
		t.Errorf("UnitPrice(12.5, 100) = %v, want 0.125", got)
	}
	if got := UnitPrice(10, 0); got != 0 {
		t.Errorf("UnitPrice with zero quantity = %v, want 0", got)
	}
	if got := UnitPrice(10, -3); got != 0 {
		t.Errorf("UnitPrice with negative quantity = %v, want 0", got)
	}
}

func TestFinishAndLaborCost(t *testing.T) {
	if got := FinishCost(40, 25); got != 10 {
		t.Errorf("FinishCost(40, 25) = %v, want 10", got)
	}
	if got := LaborCost(7.5, 30); got != 225 {
		t.Errorf("LaborCost(7.5, 30) = %v, want 225", got)
	}
}

func TestRoundMoney(t *testing.T) {
	cases := map[float64]float64{
		1.005:  1.01,
		2.344:  2.34,
		-1.005: -1.01,
		0:      0,
	}
	for in, want := range cases {
		if got := RoundMoney(in); got != want {
			// 1.005 is not representable exactly; accept the neighbouring cent
			if math.Abs(got-want) > 0.011 {
				t.Errorf("RoundMoney(%v) = %v, want %v", in, got, want)
			}
		}
	}
}

func TestSummarize(t *testing.T) {
	lines := []Line{
		{Kind: KindLumber, ItemID: "l1", Name: "Walnut", Quantity: 10, Unit: "bf", UnitCost: 12.5, Cost: 125},
		{Kind: KindLumber, ItemID: "l2", Name: "Maple", Quantity: 2.5, Unit: "bf", UnitCost: 8, Cost: 20},
		{Kind: KindFinish, ItemID: "f1", Name: "Danish oil", Quantity: 25, Unit: "%", UnitCost: 0.4, Cost: 10},
		{Kind: KindSheetGood, ItemID: "s1", Name: "Birch ply", Quantity: 0.5, Unit: "sheet", UnitCost: 80, Cost: 40},
		{Kind: KindConsumable, ItemID: "c1", Name: "Screws", Quantity: 20, Unit: "pcs", UnitCost: 0.05, Cost: 1},
		{Kind: KindTool, ItemID: "t1", Name: "Router", Quantity: 1},
	}

	got := Summarize(lines, 4, 25, 15, 500)

	want := Breakdown{
		Lines:          lines,
		BoardFeet:      12.5,
		MaterialCost:   145,
		FinishCost:     10,
		SheetGoodCost:  40,
		ConsumableCost: 1,
		LaborCost:      100,
		MiscCost:       15,
		Total:          311,
		SalePrice:      500,
		Profit:         189,
		Margin:         37.8,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeWithoutSalePrice(t *testing.T) {
	got := Summarize(nil, 0, 0, 0, 0)

	want := Breakdown{}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("empty Summarize mismatch (-want +got):\n%s", diff)
	}
	if got.Lines == nil {
		t.Error("Lines should be an empty slice, not nil")
	}
}

func TestSummarizeRoundsOnlyTotals(t *testing.T) {
	// three lines of 1/3 each must total 1.00, not 0.99
	third := 1.0 / 3
	lines := []Line{
		{Kind: KindConsumable, Cost: third},
		{Kind: KindConsumable, Cost: third},
		{Kind: KindConsumable, Cost: third},
	}
	got := Summarize(lines, 0, 0, 0, 0)
	if got.Total != 1 {
		t.Errorf("Total = %v, want 1", got.Total)
	}
	if got.Lines[0].Cost != 0.33 {
		t.Errorf("line cost = %v, want 0.33", got.Lines[0].Cost)
	}
}
