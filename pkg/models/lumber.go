package models

import (
	"strings"

	"github.com/psantana5/grain/internal/costing"
)

// Lumber is a stack of identical boards
type Lumber struct {
	Record
	Species           string             `json:"species"`
	Grade             string             `json:"grade"`
	Width             float64            `json:"width"`     // inches
	Thickness         float64            `json:"thickness"` // inches
	Length            float64            `json:"length"`
	LengthUnit        costing.LengthUnit `json:"lengthUnit"`
	Quantity          int                `json:"quantity"` // boards on hand
	PricePerBoardFoot float64            `json:"pricePerBoardFoot"`
	Supplier          string             `json:"supplier"`
	Notes             string             `json:"notes"`
}

// Normalize applies defaults before validation
func (l *Lumber) Normalize() {
	l.Species = strings.TrimSpace(l.Species)
	if unit, err := costing.ParseLengthUnit(string(l.LengthUnit)); err == nil {
		l.LengthUnit = unit
	}
}

// Validate checks if the lumber entry is valid
func (l *Lumber) Validate() error {
	if _, err := costing.ParseLengthUnit(string(l.LengthUnit)); err != nil {
		return invalid("%v", err)
	}
	if l.Quantity < 0 {
		return invalid("quantity must not be negative")
	}
	return firstError(
		requireText("species", l.Species),
		requirePositive("width", l.Width),
		requirePositive("thickness", l.Thickness),
		requirePositive("length", l.Length),
		requireNonNegative("pricePerBoardFoot", l.PricePerBoardFoot),
	)
}

// LengthInches returns the board length converted to inches
func (l *Lumber) LengthInches() float64 {
	inches, err := costing.ToInches(l.Length, l.LengthUnit)
	if err != nil {
		return 0
	}
	return inches
}

// BoardFeetFor returns the board footage of n boards of this stock
func (l *Lumber) BoardFeetFor(n float64) float64 {
	return costing.BoardFeet(l.Width, l.Thickness, l.LengthInches(), n)
}

// BoardFeet returns the board footage of the whole stack
func (l *Lumber) BoardFeet() float64 {
	return l.BoardFeetFor(float64(l.Quantity))
}

// InventoryValue prices the stack at its board-foot price
func (l *Lumber) InventoryValue() float64 {
	return l.BoardFeet() * l.PricePerBoardFoot
}
