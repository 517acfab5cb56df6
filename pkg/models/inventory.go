package models

import (
	"strings"
	"time"

	"github.com/psantana5/grain/internal/costing"
)

// FinishType classifies finishing products
type FinishType string

const (
	FinishOil          FinishType = "oil"
	FinishVarnish      FinishType = "varnish"
	FinishLacquer      FinishType = "lacquer"
	FinishStain        FinishType = "stain"
	FinishWax          FinishType = "wax"
	FinishPaint        FinishType = "paint"
	FinishShellac      FinishType = "shellac"
	FinishPolyurethane FinishType = "polyurethane"
	FinishOther        FinishType = "other"
)

// Finish is a container of finishing product. Projects consume a percentage of one container.
type Finish struct {
	Record
	Name       string     `json:"name"`
	Brand      string     `json:"brand"`
	FinishType FinishType `json:"finishType"`
	Volume     float64    `json:"volume"`
	VolumeUnit string     `json:"volumeUnit"`
	Price      float64    `json:"price"`    // per container
	Quantity   int        `json:"quantity"` // containers on hand
	Notes      string     `json:"notes"`
}

// Normalize applies defaults before validation
func (f *Finish) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	if f.FinishType == "" {
		f.FinishType = FinishOther
	}
}

// Validate checks if the finish is valid
func (f *Finish) Validate() error {
	if f.Quantity < 0 {
		return invalid("quantity must not be negative")
	}
	return firstError(
		requireText("name", f.Name),
		oneOf("finishType", f.FinishType, FinishOil, FinishVarnish, FinishLacquer, FinishStain,
			FinishWax, FinishPaint, FinishShellac, FinishPolyurethane, FinishOther),
		requireNonNegative("volume", f.Volume),
		requireNonNegative("price", f.Price),
	)
}

// InventoryValue is the value of every container on hand
func (f *Finish) InventoryValue() float64 {
	return f.Price * float64(f.Quantity)
}

// SheetMaterial classifies sheet goods
type SheetMaterial string

const (
	SheetPlywood       SheetMaterial = "plywood"
	SheetMDF           SheetMaterial = "mdf"
	SheetOSB           SheetMaterial = "osb"
	SheetParticleboard SheetMaterial = "particleboard"
	SheetHardboard     SheetMaterial = "hardboard"
	SheetMelamine      SheetMaterial = "melamine"
	SheetOther         SheetMaterial = "other"
)

// SheetGood is a stack of identical panels
type SheetGood struct {
	Record
	Name      string        `json:"name"`
	Material  SheetMaterial `json:"material"`
	Width     float64       `json:"width"`
	Length    float64       `json:"length"`
	Thickness float64       `json:"thickness"`
	Price     float64       `json:"price"`    // per sheet
	Quantity  int           `json:"quantity"` // sheets on hand
	Notes     string        `json:"notes"`
}

// Normalize applies defaults before validation
func (s *SheetGood) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	if s.Material == "" {
		s.Material = SheetOther
	}
}

// Validate checks if the sheet good is valid
func (s *SheetGood) Validate() error {
	if s.Quantity < 0 {
		return invalid("quantity must not be negative")
	}
	return firstError(
		requireText("name", s.Name),
		oneOf("material", s.Material, SheetPlywood, SheetMDF, SheetOSB, SheetParticleboard,
			SheetHardboard, SheetMelamine, SheetOther),
		requireNonNegative("width", s.Width),
		requireNonNegative("length", s.Length),
		requireNonNegative("thickness", s.Thickness),
		requireNonNegative("price", s.Price),
	)
}

// InventoryValue is the value of every sheet on hand
func (s *SheetGood) InventoryValue() float64 {
	return s.Price * float64(s.Quantity)
}

// ConsumableCategory classifies consumables
type ConsumableCategory string

const (
	ConsumableAbrasive ConsumableCategory = "abrasive"
	ConsumableAdhesive ConsumableCategory = "adhesive"
	ConsumableFastener ConsumableCategory = "fastener"
	ConsumableHardware ConsumableCategory = "hardware"
	ConsumableOther    ConsumableCategory = "other"
)

// Consumable is bought by the package and used by the unit
type Consumable struct {
	Record
	Name            string             `json:"name"`
	Category        ConsumableCategory `json:"category"`
	PackagePrice    float64            `json:"packagePrice"`
	PackageQuantity float64            `json:"packageQuantity"` // units per package
	Unit            string             `json:"unit"`
	Quantity        float64            `json:"quantity"` // units on hand
	Notes           string             `json:"notes"`
}

// Normalize applies defaults before validation
func (c *Consumable) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	if c.Category == "" {
		c.Category = ConsumableOther
	}
	if c.Unit == "" {
		c.Unit = "pcs"
	}
}

// Validate checks if the consumable is valid
func (c *Consumable) Validate() error {
	return firstError(
		requireText("name", c.Name),
		oneOf("category", c.Category, ConsumableAbrasive, ConsumableAdhesive, ConsumableFastener,
			ConsumableHardware, ConsumableOther),
		requireNonNegative("packagePrice", c.PackagePrice),
		requirePositive("packageQuantity", c.PackageQuantity),
		requireNonNegative("quantity", c.Quantity),
	)
}

// UnitPrice is the price of a single unit
func (c *Consumable) UnitPrice() float64 {
	return costing.UnitPrice(c.PackagePrice, c.PackageQuantity)
}

// InventoryValue is the value of the units on hand
func (c *Consumable) InventoryValue() float64 {
	return c.UnitPrice() * c.Quantity
}

// ToolCondition describes the state of a tool
type ToolCondition string

const (
	ToolNew         ToolCondition = "new"
	ToolGood        ToolCondition = "good"
	ToolFair        ToolCondition = "fair"
	ToolNeedsRepair ToolCondition = "needs_repair"
)

// Tool is a piece of shop equipment. Tools are listed on projects but never costed.
type Tool struct {
	Record
	Name          string        `json:"name"`
	Brand         string        `json:"brand"`
	Model         string        `json:"model"`
	Category      string        `json:"category"`
	PurchasePrice float64       `json:"purchasePrice"`
	PurchaseDate  *time.Time    `json:"purchaseDate,omitempty"`
	Condition     ToolCondition `json:"condition"`
	Notes         string        `json:"notes"`
}

// Normalize applies defaults before validation
func (t *Tool) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	if t.Condition == "" {
		t.Condition = ToolGood
	}
}

// Validate checks if the tool is valid
func (t *Tool) Validate() error {
	return firstError(
		requireText("name", t.Name),
		oneOf("condition", t.Condition, ToolNew, ToolGood, ToolFair, ToolNeedsRepair),
		requireNonNegative("purchasePrice", t.PurchasePrice),
	)
}

// InventoryValue is what the tool cost
func (t *Tool) InventoryValue() float64 {
	return t.PurchasePrice
}
