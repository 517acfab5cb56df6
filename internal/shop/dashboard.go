package shop

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/psantana5/grain/internal/costing"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
	"github.com/psantana5/grain/pkg/tracing"
)

// RecentProjectLimit is the number of projects listed on the dashboard
const RecentProjectLimit = 5

// KindStats summarizes the active records of one inventory kind
type KindStats struct {
	Count   int     `json:"count"`
	Trashed int     `json:"trashed"`
	Value   float64 `json:"value"`
}

// StatusCount is the number of active projects in a status
type StatusCount struct {
	Status models.ProjectStatus `json:"status"`
	Count  int                  `json:"count"`
}

// Dashboard aggregates the user's inventory and projects
type Dashboard struct {
	Lumber          KindStats `json:"lumber"`
	Finishes        KindStats `json:"finishes"`
	SheetGoods      KindStats `json:"sheetGoods"`
	Consumables     KindStats `json:"consumables"`
	Tools           KindStats `json:"tools"`
	LumberBoardFeet float64   `json:"lumberBoardFeet"`
	// InventoryValue covers materials; ToolValue is reported separately in Tools
	InventoryValue     float64           `json:"inventoryValue"`
	TotalValue         float64           `json:"totalValue"`
	ProjectCount       int               `json:"projectCount"`
	ProjectsByStatus   []StatusCount     `json:"projectsByStatus"`
	TotalProjectCost   float64           `json:"totalProjectCost"`
	AverageProjectCost float64           `json:"averageProjectCost"`
	TrashCount         int               `json:"trashCount"`
	RecentProjects     []*models.Project `json:"recentProjects"`
}

type valued interface {
	IsDeleted() bool
	InventoryValue() float64
}

func tally[T any, PT interface {
	*T
	valued
}](items []*T) KindStats {
	var st KindStats
	for _, item := range items {
		p := PT(item)
		if p.IsDeleted() {
			st.Trashed++
			continue
		}
		st.Count++
		st.Value += p.InventoryValue()
	}
	st.Value = costing.RoundMoney(st.Value)
	return st
}

func listAll[T any](ctx context.Context, coll store.Collection[T], userID string, dst *[]*T) func() error {
	return func() error {
		items, err := coll.List(ctx, userID, store.ListFilter{IncludeDeleted: true})
		if err != nil {
			return err
		}
		*dst = items
		return nil
	}
}

// Dashboard loads every kind concurrently and aggregates it
func (s *Service) Dashboard(ctx context.Context, userID string) (_ *Dashboard, err error) {
	ctx, span := tracing.Start(ctx, "shop.Dashboard")
	defer func() { tracing.End(span, err) }()

	var (
		lumber      []*models.Lumber
		finishes    []*models.Finish
		sheets      []*models.SheetGood
		consumables []*models.Consumable
		tools       []*models.Tool
		projects    []*models.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(listAll(gctx, s.store.Lumber(), userID, &lumber))
	g.Go(listAll(gctx, s.store.Finishes(), userID, &finishes))
	g.Go(listAll(gctx, s.store.SheetGoods(), userID, &sheets))
	g.Go(listAll(gctx, s.store.Consumables(), userID, &consumables))
	g.Go(listAll(gctx, s.store.Tools(), userID, &tools))
	g.Go(listAll(gctx, s.store.Projects(), userID, &projects))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		Lumber:      tally(lumber),
		Finishes:    tally(finishes),
		SheetGoods:  tally(sheets),
		Consumables: tally(consumables),
		Tools:       tally(tools),
	}
	var bf float64
	for _, l := range lumber {
		if !l.IsDeleted() {
			bf += l.BoardFeet()
		}
	}
	d.LumberBoardFeet = costing.RoundMoney(bf)
	d.InventoryValue = costing.RoundMoney(d.Lumber.Value + d.Finishes.Value + d.SheetGoods.Value + d.Consumables.Value)
	d.TotalValue = costing.RoundMoney(d.InventoryValue + d.Tools.Value)
	d.TrashCount = d.Lumber.Trashed + d.Finishes.Trashed + d.SheetGoods.Trashed +
		d.Consumables.Trashed + d.Tools.Trashed

	byStatus := make(map[models.ProjectStatus]int)
	var active []*models.Project
	for _, p := range projects {
		if p.IsDeleted() {
			d.TrashCount++
			continue
		}
		active = append(active, p)
		byStatus[p.Status]++
	}
	d.ProjectCount = len(active)
	for _, status := range models.ProjectStatuses() {
		d.ProjectsByStatus = append(d.ProjectsByStatus, StatusCount{Status: status, Count: byStatus[status]})
	}

	if err := s.projectTotals(ctx, d, active); err != nil {
		return nil, err
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].UpdatedAt.After(active[j].UpdatedAt)
	})
	if len(active) > RecentProjectLimit {
		active = active[:RecentProjectLimit]
	}
	d.RecentProjects = active
	return d, nil
}

// projectTotals costs the non-cancelled active projects
func (s *Service) projectTotals(ctx context.Context, d *Dashboard, active []*models.Project) error {
	var costed []*models.Project
	for _, p := range active {
		if p.Status != models.ProjectCancelled {
			costed = append(costed, p)
		}
	}
	if len(costed) == 0 {
		return nil
	}

	totals := make([]float64, len(costed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range costed {
		g.Go(func() error {
			b, err := s.cost(gctx, p)
			if err != nil {
				return err
			}
			totals[i] = b.Total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var sum float64
	for _, t := range totals {
		sum += t
	}
	d.TotalProjectCost = costing.RoundMoney(sum)
	d.AverageProjectCost = costing.RoundMoney(sum / float64(len(costed)))
	return nil
}
