package costing

import (
	"fmt"
	"strings"
)

// LengthUnit is the unit a board length was measured in
type LengthUnit string

const (
	UnitInch  LengthUnit = "in"
	UnitFoot  LengthUnit = "ft"
	UnitYard  LengthUnit = "yd"
	UnitVara  LengthUnit = "vara"
	UnitCenti LengthUnit = "cm"
	UnitMeter LengthUnit = "m"
)

// InchesPerVara is the length of a vara as used in Latin American lumber yards
const InchesPerVara = 33.0

var inchesPer = map[LengthUnit]float64{
	UnitInch:  1,
	UnitFoot:  12,
	UnitYard:  36,
	UnitVara:  InchesPerVara,
	UnitCenti: 1 / 2.54,
	UnitMeter: 100 / 2.54,
}

// LengthUnits lists every supported length unit
func LengthUnits() []LengthUnit {
	return []LengthUnit{UnitInch, UnitFoot, UnitYard, UnitVara, UnitCenti, UnitMeter}
}

// ParseLengthUnit normalizes a unit string. Empty means inches.
func ParseLengthUnit(s string) (LengthUnit, error) {
	u := LengthUnit(strings.ToLower(strings.TrimSpace(s)))
	if u == "" {
		return UnitInch, nil
	}
	if _, ok := inchesPer[u]; !ok {
		return "", fmt.Errorf("unknown length unit %q", s)
	}
	return u, nil
}

// ToInches converts a length in the given unit to inches
func ToInches(value float64, unit LengthUnit) (float64, error) {
	u, err := ParseLengthUnit(string(unit))
	if err != nil {
		return 0, err
	}
	return value * inchesPer[u], nil
}
