package shop

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/grain/internal/costing"
	"github.com/psantana5/grain/pkg/logging/loggingtest"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
)

const (
	ana = "user-ana"
	bob = "user-bob"
)

func newService(t *testing.T) *Service {
	t.Helper()
	svc := New(store.NewMemoryStore(), loggingtest.New(t))
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc
}

// workshop creates one record of every kind for ana
type workshop struct {
	walnut  *models.Lumber
	oil     *models.Finish
	ply     *models.SheetGood
	screws  *models.Consumable
	chisel  *models.Tool
	project *models.Project
}

func seed(t *testing.T, svc *Service) workshop {
	t.Helper()
	ctx := context.Background()
	var w workshop
	var err error

	w.walnut, err = svc.Lumber.Create(ctx, ana, &models.Lumber{
		Species: "Walnut", Width: 6, Thickness: 1, Length: 8, LengthUnit: "ft",
		Quantity: 5, PricePerBoardFoot: 12,
	})
	require.NoError(t, err)
	w.oil, err = svc.Finishes.Create(ctx, ana, &models.Finish{Name: "Danish oil", Price: 20, Quantity: 2})
	require.NoError(t, err)
	w.ply, err = svc.SheetGoods.Create(ctx, ana, &models.SheetGood{Name: "Birch ply", Price: 80, Quantity: 3})
	require.NoError(t, err)
	w.screws, err = svc.Consumables.Create(ctx, ana, &models.Consumable{
		Name: "Screws", PackagePrice: 10, PackageQuantity: 100, Quantity: 250,
	})
	require.NoError(t, err)
	w.chisel, err = svc.Tools.Create(ctx, ana, &models.Tool{Name: "Chisel", PurchasePrice: 45})
	require.NoError(t, err)
	w.project, err = svc.Projects.Create(ctx, ana, &models.Project{
		Name: "Side table", LaborHours: 10, HourlyRate: 30, MiscCost: 15, SalePrice: 800,
	})
	require.NoError(t, err)
	return w
}

func (w workshop) lines() []models.ProjectItem {
	return []models.ProjectItem{
		{Kind: models.ItemLumber, ItemID: w.walnut.ID, Quantity: 2},
		{Kind: models.ItemFinish, ItemID: w.oil.ID, Percentage: 25},
		{Kind: models.ItemSheetGood, ItemID: w.ply.ID, Quantity: 0.5},
		{Kind: models.ItemConsumable, ItemID: w.screws.ID, Quantity: 40},
		{Kind: models.ItemTool, ItemID: w.chisel.ID},
	}
}

func TestResourceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	created, err := svc.Tools.Create(ctx, ana, &models.Tool{Name: "  Block plane ", Brand: "Veritas"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, ana, created.UserID)
	assert.Equal(t, "Block plane", created.Name)
	assert.Equal(t, models.ToolGood, created.Condition)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	updated, err := svc.Tools.Update(ctx, ana, created.ID, func(tool *models.Tool) error {
		tool.Condition = models.ToolNeedsRepair
		tool.ID = "hijacked"
		tool.UserID = bob
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, ana, updated.UserID)
	assert.Equal(t, models.ToolNeedsRepair, updated.Condition)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = svc.Tools.Update(ctx, ana, created.ID, func(tool *models.Tool) error {
		tool.Name = ""
		return nil
	})
	assert.ErrorIs(t, err, models.ErrInvalid)

	assert.ErrorIs(t, svc.Tools.Destroy(ctx, ana, created.ID), store.ErrNotDeleted)

	trashed, err := svc.Tools.Delete(ctx, ana, created.ID)
	require.NoError(t, err)
	assert.True(t, trashed.IsDeleted())

	_, err = svc.Tools.Update(ctx, ana, created.ID, func(tool *models.Tool) error { return nil })
	assert.ErrorIs(t, err, store.ErrDeleted)

	restored, err := svc.Tools.Restore(ctx, ana, created.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())
	assert.True(t, restored.UpdatedAt.After(trashed.UpdatedAt), "restore uses the service clock")
	assert.Equal(t, 2024, restored.UpdatedAt.Year())

	_, err = svc.Tools.Delete(ctx, ana, created.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Tools.Destroy(ctx, ana, created.ID))
	_, err = svc.Tools.Get(ctx, ana, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResourceOwnership(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	w := seed(t, svc)

	_, err := svc.Lumber.Get(ctx, bob, w.walnut.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Lumber.Delete(ctx, bob, w.walnut.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := svc.Lumber.List(ctx, bob, store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProjectUpdateKeepsShareToken(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	token := "guessable"
	p, err := svc.Projects.Create(ctx, ana, &models.Project{Name: "Box", ShareToken: &token})
	require.NoError(t, err)
	assert.Nil(t, p.ShareToken, "tokens are only issued by ShareProject")

	p, err = svc.Projects.Update(ctx, ana, p.ID, func(p *models.Project) error {
		p.ShareToken = &token
		p.Status = models.ProjectCompleted
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, p.ShareToken)
	require.NotNil(t, p.CompletedAt)
	assert.True(t, p.CompletedAt.Equal(p.UpdatedAt), "completion is stamped with the service clock")
	assert.Equal(t, 2024, p.CompletedAt.Year())
}

func TestProjectCost(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	w := seed(t, svc)

	_, err := svc.SetProjectItems(ctx, ana, w.project.ID, w.lines())
	require.NoError(t, err)

	got, err := svc.ProjectCost(ctx, ana, w.project.ID)
	require.NoError(t, err)

	// walnut: 6 x 1 x 96 / 144 x 2 = 8 bf at 12 = 96
	// oil: 25% of 20 = 5; ply: 0.5 x 80 = 40; screws: 40 x 0.10 = 4
	// labor 300, misc 15
	want := &costing.Breakdown{
		Lines: []costing.Line{
			{Kind: costing.KindLumber, ItemID: w.walnut.ID, Name: "Walnut", Quantity: 8, Unit: "bf", UnitCost: 12, Cost: 96},
			{Kind: costing.KindFinish, ItemID: w.oil.ID, Name: "Danish oil", Quantity: 25, Unit: "%", UnitCost: 20, Cost: 5},
			{Kind: costing.KindSheetGood, ItemID: w.ply.ID, Name: "Birch ply", Quantity: 0.5, Unit: "sheet", UnitCost: 80, Cost: 40},
			{Kind: costing.KindConsumable, ItemID: w.screws.ID, Name: "Screws", Quantity: 40, Unit: "pcs", UnitCost: 0.1, Cost: 4},
			{Kind: costing.KindTool, ItemID: w.chisel.ID, Name: "Chisel"},
		},
		BoardFeet:      8,
		MaterialCost:   96,
		FinishCost:     5,
		SheetGoodCost:  40,
		ConsumableCost: 4,
		LaborCost:      300,
		MiscCost:       15,
		Total:          460,
		SalePrice:      800,
		Profit:         340,
		Margin:         42.5,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("ProjectCost() mismatch (-want +got):\n%s", diff)
	}
}

func TestTrashedInventoryStillPricesLines(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	w := seed(t, svc)

	_, err := svc.SetProjectItems(ctx, ana, w.project.ID, w.lines()[:1])
	require.NoError(t, err)
	_, err = svc.Lumber.Delete(ctx, ana, w.walnut.ID)
	require.NoError(t, err)

	items, err := svc.ProjectItems(ctx, ana, w.project.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].ItemDeleted)
	assert.InDelta(t, 96, items[0].Cost, 1e-9)

	// a trashed record can no longer be added
	_, err = svc.SetProjectItems(ctx, ana, w.project.ID, w.lines()[:1])
	assert.ErrorIs(t, err, models.ErrInvalid)

	// destroying it removes the line
	require.NoError(t, svc.Lumber.Destroy(ctx, ana, w.walnut.ID))
	items, err = svc.ProjectItems(ctx, ana, w.project.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSetProjectItemsValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	w := seed(t, svc)
	other := seed(t, svc)

	bobsLumber, err := svc.Lumber.Create(ctx, bob, &models.Lumber{Species: "Oak", Width: 4, Thickness: 1, Length: 10})
	require.NoError(t, err)

	tests := []struct {
		name  string
		items []models.ProjectItem
	}{
		{"duplicate line", []models.ProjectItem{
			{Kind: models.ItemLumber, ItemID: w.walnut.ID, Quantity: 1},
			{Kind: models.ItemLumber, ItemID: w.walnut.ID, Quantity: 2},
		}},
		{"another user's record", []models.ProjectItem{{Kind: models.ItemLumber, ItemID: bobsLumber.ID, Quantity: 1}}},
		{"unknown record", []models.ProjectItem{{Kind: models.ItemTool, ItemID: "nope"}}},
		{"finish without percentage", []models.ProjectItem{{Kind: models.ItemFinish, ItemID: w.oil.ID}}},
		{"zero quantity", []models.ProjectItem{{Kind: models.ItemSheetGood, ItemID: w.ply.ID}}},
		{"unknown kind", []models.ProjectItem{{Kind: "veneer", ItemID: w.ply.ID, Quantity: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetProjectItems(ctx, ana, w.project.ID, tt.items)
			assert.ErrorIs(t, err, models.ErrInvalid)
		})
	}

	_, err = svc.SetProjectItems(ctx, bob, w.project.ID, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Projects.Delete(ctx, ana, other.project.ID)
	require.NoError(t, err)
	_, err = svc.SetProjectItems(ctx, ana, other.project.ID, nil)
	assert.ErrorIs(t, err, store.ErrDeleted)
}

func TestAddAndRemoveProjectItem(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	w := seed(t, svc)
	before := w.project.UpdatedAt

	items, err := svc.AddProjectItem(ctx, ana, w.project.ID, models.ProjectItem{Kind: models.ItemLumber, ItemID: w.walnut.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = svc.AddProjectItem(ctx, ana, w.project.ID, models.ProjectItem{Kind: "FINISH", ItemID: w.oil.ID, Percentage: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.ItemFinish, items[1].Kind)
	assert.Equal(t, 1, items[1].SortOrder)

	// same record again updates the existing line in place
	items, err = svc.AddProjectItem(ctx, ana, w.project.ID, models.ProjectItem{Kind: models.ItemLumber, ItemID: w.walnut.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.ItemLumber, items[0].Kind)
	assert.Equal(t, 3.0, items[0].Quantity)

	items, err = svc.RemoveProjectItem(ctx, ana, w.project.ID, models.ItemLumber, w.walnut.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = svc.RemoveProjectItem(ctx, ana, w.project.ID, models.ItemLumber, w.walnut.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	p, err := svc.Projects.Get(ctx, ana, w.project.ID)
	require.NoError(t, err)
	assert.True(t, p.UpdatedAt.After(before), "line changes bump the project")
}
