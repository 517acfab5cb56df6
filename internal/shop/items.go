package shop

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/psantana5/grain/internal/costing"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
	"github.com/psantana5/grain/pkg/tracing"
)

// PricedItem is a project line joined with the inventory record it points at
type PricedItem struct {
	models.ProjectItem
	Name string `json:"name"`
	// Unit of Amount: "bf" for lumber, "%" for finishes, the consumable unit, "sheet" or "" for tools
	Unit     string  `json:"unit"`
	Amount   float64 `json:"amount"`
	UnitCost float64 `json:"unitCost"`
	Cost     float64 `json:"cost"`
	// ItemDeleted is set when the referenced inventory record is in the trash
	ItemDeleted bool `json:"itemDeleted"`
}

// line converts the priced item into a costing line
func (p PricedItem) line() costing.Line {
	return costing.Line{
		Kind:     costing.Kind(p.Kind),
		ItemID:   p.ItemID,
		Name:     p.Name,
		Quantity: p.Amount,
		Unit:     p.Unit,
		UnitCost: p.UnitCost,
		Cost:     p.Cost,
	}
}

// price loads the inventory record of a line and prices the line
func (s *Service) price(ctx context.Context, userID string, item models.ProjectItem) (PricedItem, error) {
	out := PricedItem{ProjectItem: item}

	switch item.Kind {
	case models.ItemLumber:
		l, err := s.store.Lumber().Get(ctx, userID, item.ItemID)
		if err != nil {
			return out, err
		}
		out.Name = l.Species
		if l.Grade != "" {
			out.Name += " (" + l.Grade + ")"
		}
		out.Unit = "bf"
		out.Amount = l.BoardFeetFor(item.Quantity)
		out.UnitCost = l.PricePerBoardFoot
		out.Cost = out.Amount * l.PricePerBoardFoot
		out.ItemDeleted = l.IsDeleted()
	case models.ItemFinish:
		f, err := s.store.Finishes().Get(ctx, userID, item.ItemID)
		if err != nil {
			return out, err
		}
		out.Name = f.Name
		out.Unit = "%"
		out.Amount = item.Percentage
		out.UnitCost = f.Price
		out.Cost = costing.FinishCost(f.Price, item.Percentage)
		out.ItemDeleted = f.IsDeleted()
	case models.ItemSheetGood:
		sg, err := s.store.SheetGoods().Get(ctx, userID, item.ItemID)
		if err != nil {
			return out, err
		}
		out.Name = sg.Name
		out.Unit = "sheet"
		out.Amount = item.Quantity
		out.UnitCost = sg.Price
		out.Cost = item.Quantity * sg.Price
		out.ItemDeleted = sg.IsDeleted()
	case models.ItemConsumable:
		c, err := s.store.Consumables().Get(ctx, userID, item.ItemID)
		if err != nil {
			return out, err
		}
		out.Name = c.Name
		out.Unit = c.Unit
		out.Amount = item.Quantity
		out.UnitCost = c.UnitPrice()
		out.Cost = item.Quantity * out.UnitCost
		out.ItemDeleted = c.IsDeleted()
	case models.ItemTool:
		t, err := s.store.Tools().Get(ctx, userID, item.ItemID)
		if err != nil {
			return out, err
		}
		out.Name = t.Name
		out.ItemDeleted = t.IsDeleted()
	default:
		return out, fmt.Errorf("%w: unknown item kind %q", models.ErrInvalid, item.Kind)
	}
	return out, nil
}

// pricedItems prices every line of a project owned by userID.
// Lines whose inventory record no longer exists are skipped.
func (s *Service) pricedItems(ctx context.Context, userID, projectID string) ([]PricedItem, error) {
	items, err := s.store.ListProjectItems(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]PricedItem, 0, len(items))
	for _, item := range items {
		priced, err := s.price(ctx, userID, item)
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("Project line points at a missing record",
				zap.String("project_id", projectID),
				zap.String("kind", string(item.Kind)),
				zap.String("item_id", item.ItemID))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, priced)
	}
	return out, nil
}

// ProjectItems returns the priced lines of a project
func (s *Service) ProjectItems(ctx context.Context, userID, projectID string) (_ []PricedItem, err error) {
	ctx, span := tracing.Start(ctx, "shop.ProjectItems", attribute.String("grain.project_id", projectID))
	defer func() { tracing.End(span, err) }()

	if _, err := s.store.Projects().Get(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.pricedItems(ctx, userID, projectID)
}

// ProjectCost rolls the project's lines, labor and overhead up into a breakdown
func (s *Service) ProjectCost(ctx context.Context, userID, projectID string) (_ *costing.Breakdown, err error) {
	ctx, span := tracing.Start(ctx, "shop.ProjectCost", attribute.String("grain.project_id", projectID))
	defer func() { tracing.End(span, err) }()

	p, err := s.store.Projects().Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return s.cost(ctx, p)
}

func (s *Service) cost(ctx context.Context, p *models.Project) (*costing.Breakdown, error) {
	priced, err := s.pricedItems(ctx, p.UserID, p.ID)
	if err != nil {
		return nil, err
	}
	lines := make([]costing.Line, len(priced))
	for i, item := range priced {
		lines[i] = item.line()
	}
	b := costing.Summarize(lines, p.LaborHours, p.HourlyRate, p.MiscCost, p.SalePrice)
	return &b, nil
}

// activeProject loads a project the user may modify
func (s *Service) activeProject(ctx context.Context, userID, projectID string) (*models.Project, error) {
	p, err := s.store.Projects().Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, store.ErrDeleted
	}
	return p, nil
}

// checkItem normalizes and validates a line and verifies it references an
// active inventory record of the user
func (s *Service) checkItem(ctx context.Context, userID, projectID string, item *models.ProjectItem) error {
	item.Normalize()
	item.ProjectID = projectID
	if err := item.Validate(); err != nil {
		return err
	}

	priced, err := s.price(ctx, userID, *item)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %s does not exist", models.ErrInvalid, item.Kind, item.ItemID)
	}
	if err != nil {
		return err
	}
	if priced.ItemDeleted {
		return fmt.Errorf("%w: %s %s is in the trash", models.ErrInvalid, item.Kind, item.ItemID)
	}
	return nil
}

type itemKey struct {
	kind models.ItemKind
	id   string
}

// SetProjectItems replaces every line of a project. Lines keep the order given.
func (s *Service) SetProjectItems(ctx context.Context, userID, projectID string, items []models.ProjectItem) (_ []PricedItem, err error) {
	ctx, span := tracing.Start(ctx, "shop.SetProjectItems",
		attribute.String("grain.project_id", projectID),
		attribute.Int("grain.items", len(items)))
	defer func() { tracing.End(span, err) }()

	p, err := s.activeProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	lines := make([]models.ProjectItem, len(items))
	seen := make(map[itemKey]bool, len(items))
	for i, item := range items {
		if err := s.checkItem(ctx, userID, projectID, &item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		key := itemKey{item.Kind, item.ItemID}
		if seen[key] {
			return nil, fmt.Errorf("%w: %s %s is listed twice", models.ErrInvalid, item.Kind, item.ItemID)
		}
		seen[key] = true
		item.SortOrder = i
		lines[i] = item
	}

	if err := s.store.ReplaceProjectItems(ctx, projectID, lines); err != nil {
		return nil, err
	}
	if err := s.touch(ctx, p); err != nil {
		return nil, err
	}
	return s.pricedItems(ctx, userID, projectID)
}

// AddProjectItem adds a line, or replaces the values of an existing line for the same record
func (s *Service) AddProjectItem(ctx context.Context, userID, projectID string, item models.ProjectItem) (_ []PricedItem, err error) {
	ctx, span := tracing.Start(ctx, "shop.AddProjectItem",
		attribute.String("grain.project_id", projectID),
		attribute.String("grain.kind", string(item.Kind)))
	defer func() { tracing.End(span, err) }()

	p, err := s.activeProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.checkItem(ctx, userID, projectID, &item); err != nil {
		return nil, err
	}

	lines, err := s.store.ListProjectItems(ctx, projectID)
	if err != nil {
		return nil, err
	}
	replaced := false
	next := 0
	for i := range lines {
		if lines[i].Kind == item.Kind && lines[i].ItemID == item.ItemID {
			item.SortOrder = lines[i].SortOrder
			lines[i] = item
			replaced = true
		}
		if lines[i].SortOrder >= next {
			next = lines[i].SortOrder + 1
		}
	}
	if !replaced {
		item.SortOrder = next
		lines = append(lines, item)
	}

	if err := s.store.ReplaceProjectItems(ctx, projectID, lines); err != nil {
		return nil, err
	}
	if err := s.touch(ctx, p); err != nil {
		return nil, err
	}
	return s.pricedItems(ctx, userID, projectID)
}

// RemoveProjectItem drops the line pointing at the given record
func (s *Service) RemoveProjectItem(ctx context.Context, userID, projectID string, kind models.ItemKind, itemID string) (_ []PricedItem, err error) {
	ctx, span := tracing.Start(ctx, "shop.RemoveProjectItem", attribute.String("grain.project_id", projectID))
	defer func() { tracing.End(span, err) }()

	p, err := s.activeProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	lines, err := s.store.ListProjectItems(ctx, projectID)
	if err != nil {
		return nil, err
	}
	kept := lines[:0]
	for _, line := range lines {
		if line.Kind != kind || line.ItemID != itemID {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(lines) {
		return nil, store.ErrNotFound
	}

	if err := s.store.ReplaceProjectItems(ctx, projectID, kept); err != nil {
		return nil, err
	}
	if err := s.touch(ctx, p); err != nil {
		return nil, err
	}
	return s.pricedItems(ctx, userID, projectID)
}

// touch bumps the project's UpdatedAt after its lines changed
func (s *Service) touch(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = s.now()
	return s.store.Projects().Update(ctx, p)
}
