package store

import (
	"github.com/psantana5/grain/pkg/models"
)

// sqlKind maps one owned record type onto its table.
// columns, values and targets list the same columns in the same order.
type sqlKind[T any, PT entity[T]] struct {
	table   string
	item    models.ItemKind // empty for projects
	search  string
	columns []string
	values  func(PT) []any
	targets func(PT) []any
}

var lumberKind = sqlKind[models.Lumber, *models.Lumber]{
	table:  TableLumber,
	item:   models.ItemLumber,
	search: "species",
	columns: []string{"species", "grade", "width", "thickness", "length", "length_unit",
		"quantity", "price_per_board_foot", "supplier", "notes"},
	values: func(l *models.Lumber) []any {
		return []any{l.Species, l.Grade, l.Width, l.Thickness, l.Length, string(l.LengthUnit),
			l.Quantity, l.PricePerBoardFoot, l.Supplier, l.Notes}
	},
	targets: func(l *models.Lumber) []any {
		return []any{&l.Species, &l.Grade, &l.Width, &l.Thickness, &l.Length, &l.LengthUnit,
			&l.Quantity, &l.PricePerBoardFoot, &l.Supplier, &l.Notes}
	},
}

var finishKind = sqlKind[models.Finish, *models.Finish]{
	table:   TableFinishes,
	item:    models.ItemFinish,
	search:  "name",
	columns: []string{"name", "brand", "finish_type", "volume", "volume_unit", "price", "quantity", "notes"},
	values: func(f *models.Finish) []any {
		return []any{f.Name, f.Brand, string(f.FinishType), f.Volume, f.VolumeUnit, f.Price, f.Quantity, f.Notes}
	},
	targets: func(f *models.Finish) []any {
		return []any{&f.Name, &f.Brand, &f.FinishType, &f.Volume, &f.VolumeUnit, &f.Price, &f.Quantity, &f.Notes}
	},
}

var sheetGoodKind = sqlKind[models.SheetGood, *models.SheetGood]{
	table:   TableSheetGoods,
	item:    models.ItemSheetGood,
	search:  "name",
	columns: []string{"name", "material", "width", "length", "thickness", "price", "quantity", "notes"},
	values: func(s *models.SheetGood) []any {
		return []any{s.Name, string(s.Material), s.Width, s.Length, s.Thickness, s.Price, s.Quantity, s.Notes}
	},
	targets: func(s *models.SheetGood) []any {
		return []any{&s.Name, &s.Material, &s.Width, &s.Length, &s.Thickness, &s.Price, &s.Quantity, &s.Notes}
	},
}

var consumableKind = sqlKind[models.Consumable, *models.Consumable]{
	table:   TableConsumables,
	item:    models.ItemConsumable,
	search:  "name",
	columns: []string{"name", "category", "package_price", "package_quantity", "unit", "quantity", "notes"},
	values: func(c *models.Consumable) []any {
		return []any{c.Name, string(c.Category), c.PackagePrice, c.PackageQuantity, c.Unit, c.Quantity, c.Notes}
	},
	targets: func(c *models.Consumable) []any {
		return []any{&c.Name, &c.Category, &c.PackagePrice, &c.PackageQuantity, &c.Unit, &c.Quantity, &c.Notes}
	},
}

var toolKind = sqlKind[models.Tool, *models.Tool]{
	table:  TableTools,
	item:   models.ItemTool,
	search: "name",
	columns: []string{"name", "brand", "model", "category", "purchase_price", "purchase_date",
		"tool_condition", "notes"},
	values: func(t *models.Tool) []any {
		return []any{t.Name, t.Brand, t.Model, t.Category, t.PurchasePrice, nullTime(t.PurchaseDate),
			string(t.Condition), t.Notes}
	},
	targets: func(t *models.Tool) []any {
		return []any{&t.Name, &t.Brand, &t.Model, &t.Category, &t.PurchasePrice, nullTimeDest{&t.PurchaseDate},
			&t.Condition, &t.Notes}
	},
}

var projectKind = sqlKind[models.Project, *models.Project]{
	table:  TableProjects,
	search: "name",
	columns: []string{"name", "description", "status", "client_name", "labor_hours", "hourly_rate",
		"misc_cost", "sale_price", "start_date", "due_date", "completed_at", "share_token", "notes"},
	values: func(p *models.Project) []any {
		return []any{p.Name, p.Description, string(p.Status), p.ClientName, p.LaborHours, p.HourlyRate,
			p.MiscCost, p.SalePrice, nullTime(p.StartDate), nullTime(p.DueDate), nullTime(p.CompletedAt),
			nullString(p.ShareToken), p.Notes}
	},
	targets: func(p *models.Project) []any {
		return []any{&p.Name, &p.Description, &p.Status, &p.ClientName, &p.LaborHours, &p.HourlyRate,
			&p.MiscCost, &p.SalePrice, nullTimeDest{&p.StartDate}, nullTimeDest{&p.DueDate},
			nullTimeDest{&p.CompletedAt}, nullStringDest{&p.ShareToken}, &p.Notes}
	},
}
