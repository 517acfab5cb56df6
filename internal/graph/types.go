package graph

import (
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/psantana5/grain/pkg/models"
)

// prop resolves a field from a typed source
func prop[S any](typ graphql.Output, get func(S) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			src, ok := p.Source.(S)
			if !ok {
				return nil, nil
			}
			return get(src), nil
		},
	}
}

func enumOf[V ~string](name, description string, values ...V) *graphql.Enum {
	cfg := graphql.EnumValueConfigMap{}
	for _, v := range values {
		cfg[strings.ToUpper(string(v))] = &graphql.EnumValueConfig{Value: v}
	}
	return graphql.NewEnum(graphql.EnumConfig{Name: name, Description: description, Values: cfg})
}

var projectStatusEnum = enumOf("ProjectStatus", "Lifecycle of a project", models.ProjectStatuses()...)

var itemKindEnum = enumOf("ItemKind", "Inventory table a project line points at", models.ItemKinds()...)

var finishTypeEnum = enumOf("FinishType", "", models.FinishOil, models.FinishVarnish, models.FinishLacquer,
	models.FinishStain, models.FinishWax, models.FinishPaint, models.FinishShellac,
	models.FinishPolyurethane, models.FinishOther)

var sheetMaterialEnum = enumOf("SheetMaterial", "", models.SheetPlywood, models.SheetMDF, models.SheetOSB,
	models.SheetParticleboard, models.SheetHardboard, models.SheetMelamine, models.SheetOther)

var consumableCategoryEnum = enumOf("ConsumableCategory", "", models.ConsumableAbrasive, models.ConsumableAdhesive,
	models.ConsumableFastener, models.ConsumableHardware, models.ConsumableOther)

var toolConditionEnum = enumOf("ToolCondition", "", models.ToolNew, models.ToolGood, models.ToolFair, models.ToolNeedsRepair)

// recordFields are exposed by every owned record
func recordFields(fields graphql.Fields) graphql.Fields {
	meta := func(get func(*models.Record) interface{}) *graphql.Field {
		return prop(graphql.Output(nil), func(e models.Entity) interface{} { return get(e.Meta()) })
	}
	id := meta(func(r *models.Record) interface{} { return r.ID })
	id.Type = graphql.NewNonNull(graphql.ID)
	created := meta(func(r *models.Record) interface{} { return r.CreatedAt })
	created.Type = graphql.NewNonNull(graphql.DateTime)
	updated := meta(func(r *models.Record) interface{} { return r.UpdatedAt })
	updated.Type = graphql.NewNonNull(graphql.DateTime)
	deletedAt := meta(func(r *models.Record) interface{} { return r.DeletedAt })
	deletedAt.Type = graphql.DateTime
	deleted := meta(func(r *models.Record) interface{} { return r.IsDeleted() })
	deleted.Type = graphql.NewNonNull(graphql.Boolean)

	fields["id"] = id
	fields["createdAt"] = created
	fields["updatedAt"] = updated
	fields["deletedAt"] = deletedAt
	fields["deleted"] = deleted
	return fields
}

func plain(typ graphql.Output) *graphql.Field {
	return &graphql.Field{Type: typ}
}

var (
	nonNullString = graphql.NewNonNull(graphql.String)
	nonNullFloat  = graphql.NewNonNull(graphql.Float)
	nonNullInt    = graphql.NewNonNull(graphql.Int)
)

var lumberType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Lumber",
	Description: "A stack of identical boards",
	Fields: recordFields(graphql.Fields{
		"species":           plain(nonNullString),
		"grade":             plain(graphql.String),
		"width":             plain(nonNullFloat),
		"thickness":         plain(nonNullFloat),
		"length":            plain(nonNullFloat),
		"lengthUnit":        plain(nonNullString),
		"quantity":          plain(nonNullInt),
		"pricePerBoardFoot": plain(nonNullFloat),
		"supplier":          plain(graphql.String),
		"notes":             plain(graphql.String),
		"lengthInches":      prop(nonNullFloat, func(l *models.Lumber) interface{} { return l.LengthInches() }),
		"boardFeet":         prop(nonNullFloat, func(l *models.Lumber) interface{} { return l.BoardFeet() }),
		"inventoryValue":    prop(nonNullFloat, func(l *models.Lumber) interface{} { return l.InventoryValue() }),
	}),
})

var finishType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Finish",
	Fields: recordFields(graphql.Fields{
		"name":           plain(nonNullString),
		"brand":          plain(graphql.String),
		"finishType":     plain(graphql.NewNonNull(finishTypeEnum)),
		"volume":         plain(graphql.Float),
		"volumeUnit":     plain(graphql.String),
		"price":          plain(nonNullFloat),
		"quantity":       plain(nonNullInt),
		"notes":          plain(graphql.String),
		"inventoryValue": prop(nonNullFloat, func(f *models.Finish) interface{} { return f.InventoryValue() }),
	}),
})

var sheetGoodType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SheetGood",
	Fields: recordFields(graphql.Fields{
		"name":           plain(nonNullString),
		"material":       plain(graphql.NewNonNull(sheetMaterialEnum)),
		"width":          plain(graphql.Float),
		"length":         plain(graphql.Float),
		"thickness":      plain(graphql.Float),
		"price":          plain(nonNullFloat),
		"quantity":       plain(nonNullInt),
		"notes":          plain(graphql.String),
		"inventoryValue": prop(nonNullFloat, func(s *models.SheetGood) interface{} { return s.InventoryValue() }),
	}),
})

var consumableType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Consumable",
	Fields: recordFields(graphql.Fields{
		"name":            plain(nonNullString),
		"category":        plain(graphql.NewNonNull(consumableCategoryEnum)),
		"packagePrice":    plain(nonNullFloat),
		"packageQuantity": plain(nonNullFloat),
		"unit":            plain(nonNullString),
		"quantity":        plain(nonNullFloat),
		"notes":           plain(graphql.String),
		"unitPrice":       prop(nonNullFloat, func(c *models.Consumable) interface{} { return c.UnitPrice() }),
		"inventoryValue":  prop(nonNullFloat, func(c *models.Consumable) interface{} { return c.InventoryValue() }),
	}),
})

var toolType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Tool",
	Fields: recordFields(graphql.Fields{
		"name":           plain(nonNullString),
		"brand":          plain(graphql.String),
		"model":          plain(graphql.String),
		"category":       plain(graphql.String),
		"purchasePrice":  plain(graphql.Float),
		"purchaseDate":   plain(graphql.DateTime),
		"condition":      plain(graphql.NewNonNull(toolConditionEnum)),
		"notes":          plain(graphql.String),
		"inventoryValue": prop(nonNullFloat, func(t *models.Tool) interface{} { return t.InventoryValue() }),
	}),
})

var costLineType = graphql.NewObject(graphql.ObjectConfig{
	Name: "CostLine",
	Fields: graphql.Fields{
		"kind":     plain(nonNullString),
		"itemId":   plain(graphql.NewNonNull(graphql.ID)),
		"name":     plain(nonNullString),
		"quantity": plain(nonNullFloat),
		"unit":     plain(graphql.String),
		"unitCost": plain(nonNullFloat),
		"cost":     plain(nonNullFloat),
	},
})

var breakdownType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "CostBreakdown",
	Description: "Cost roll-up of a project; money is rounded to cents",
	Fields: graphql.Fields{
		"lines":          plain(graphql.NewList(graphql.NewNonNull(costLineType))),
		"boardFeet":      plain(nonNullFloat),
		"materialCost":   plain(nonNullFloat),
		"finishCost":     plain(nonNullFloat),
		"sheetGoodCost":  plain(nonNullFloat),
		"consumableCost": plain(nonNullFloat),
		"laborCost":      plain(nonNullFloat),
		"miscCost":       plain(nonNullFloat),
		"total":          plain(nonNullFloat),
		"salePrice":      plain(nonNullFloat),
		"profit":         plain(nonNullFloat),
		"margin":         plain(nonNullFloat),
	},
})

var sharedProjectType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "SharedProject",
	Description: "Public read-only view of a shared project",
	Fields: graphql.Fields{
		"name":        plain(nonNullString),
		"description": plain(graphql.String),
		"status":      plain(graphql.NewNonNull(projectStatusEnum)),
		"clientName":  plain(graphql.String),
		"startDate":   plain(graphql.DateTime),
		"dueDate":     plain(graphql.DateTime),
		"completedAt": plain(graphql.DateTime),
		"cost":        plain(graphql.NewNonNull(breakdownType)),
	},
})

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id":        plain(graphql.NewNonNull(graphql.ID)),
		"email":     plain(nonNullString),
		"name":      plain(graphql.String),
		"currency":  plain(nonNullString),
		"createdAt": plain(graphql.NewNonNull(graphql.DateTime)),
	},
})

var authPayloadType = graphql.NewObject(graphql.ObjectConfig{
	Name: "AuthPayload",
	Fields: graphql.Fields{
		"token": plain(nonNullString),
		"user":  plain(graphql.NewNonNull(userType)),
	},
})

var kindStatsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "KindStats",
	Fields: graphql.Fields{
		"count":   plain(nonNullInt),
		"trashed": plain(nonNullInt),
		"value":   plain(nonNullFloat),
	},
})

var statusCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "StatusCount",
	Fields: graphql.Fields{
		"status": plain(graphql.NewNonNull(projectStatusEnum)),
		"count":  plain(nonNullInt),
	},
})

// Input types

func inputFields(fields map[string]graphql.Input) graphql.InputObjectConfigFieldMap {
	out := graphql.InputObjectConfigFieldMap{}
	for name, typ := range fields {
		out[name] = &graphql.InputObjectFieldConfig{Type: typ}
	}
	return out
}

var listFilterInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ListFilter",
	Fields: inputFields(map[string]graphql.Input{
		"includeDeleted": graphql.Boolean,
		"onlyDeleted":    graphql.Boolean,
		"search":         graphql.String,
		"limit":          graphql.Int,
		"offset":         graphql.Int,
	}),
})

var lumberInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "LumberInput",
	Fields: inputFields(map[string]graphql.Input{
		"species":           graphql.String,
		"grade":             graphql.String,
		"width":             graphql.Float,
		"thickness":         graphql.Float,
		"length":            graphql.Float,
		"lengthUnit":        graphql.String,
		"quantity":          graphql.Int,
		"pricePerBoardFoot": graphql.Float,
		"supplier":          graphql.String,
		"notes":             graphql.String,
	}),
})

var finishInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "FinishInput",
	Fields: inputFields(map[string]graphql.Input{
		"name":       graphql.String,
		"brand":      graphql.String,
		"finishType": finishTypeEnum,
		"volume":     graphql.Float,
		"volumeUnit": graphql.String,
		"price":      graphql.Float,
		"quantity":   graphql.Int,
		"notes":      graphql.String,
	}),
})

var sheetGoodInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "SheetGoodInput",
	Fields: inputFields(map[string]graphql.Input{
		"name":      graphql.String,
		"material":  sheetMaterialEnum,
		"width":     graphql.Float,
		"length":    graphql.Float,
		"thickness": graphql.Float,
		"price":     graphql.Float,
		"quantity":  graphql.Int,
		"notes":     graphql.String,
	}),
})

var consumableInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ConsumableInput",
	Fields: inputFields(map[string]graphql.Input{
		"name":            graphql.String,
		"category":        consumableCategoryEnum,
		"packagePrice":    graphql.Float,
		"packageQuantity": graphql.Float,
		"unit":            graphql.String,
		"quantity":        graphql.Float,
		"notes":           graphql.String,
	}),
})

var toolInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ToolInput",
	Fields: inputFields(map[string]graphql.Input{
		"name":          graphql.String,
		"brand":         graphql.String,
		"model":         graphql.String,
		"category":      graphql.String,
		"purchasePrice": graphql.Float,
		"purchaseDate":  graphql.DateTime,
		"condition":     toolConditionEnum,
		"notes":         graphql.String,
	}),
})

var projectInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ProjectInput",
	Fields: inputFields(map[string]graphql.Input{
		"name":        graphql.String,
		"description": graphql.String,
		"status":      projectStatusEnum,
		"clientName":  graphql.String,
		"laborHours":  graphql.Float,
		"hourlyRate":  graphql.Float,
		"miscCost":    graphql.Float,
		"salePrice":   graphql.Float,
		"startDate":   graphql.DateTime,
		"dueDate":     graphql.DateTime,
		"notes":       graphql.String,
	}),
})

var projectItemInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ProjectItemInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"kind":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(itemKindEnum)},
		"itemId":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"quantity":   &graphql.InputObjectFieldConfig{Type: graphql.Float},
		"percentage": &graphql.InputObjectFieldConfig{Type: graphql.Float},
	},
})
