package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/grain/internal/costing"
	"github.com/psantana5/grain/pkg/models"
)

// runStoreSuite exercises every Store implementation with the same expectations
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"CollectionLifecycle", testCollectionLifecycle},
		{"Ownership", testOwnership},
		{"ListFilters", testListFilters},
		{"ProjectRoundTrip", testProjectRoundTrip},
		{"ProjectItems", testProjectItems},
		{"HardDeleteCascades", testHardDeleteCascades},
		{"PurgeDeleted", testPurgeDeleted},
		{"UsersAndSessions", testUsersAndSessions},
		{"RecordCounts", testRecordCounts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func newRecord(userID, id string, created time.Time) models.Record {
	return models.Record{ID: id, UserID: userID, CreatedAt: created, UpdatedAt: created}
}

func walnut(userID, id string, created time.Time) *models.Lumber {
	return &models.Lumber{
		Record:            newRecord(userID, id, created),
		Species:           "Black Walnut",
		Grade:             "FAS",
		Width:             6,
		Thickness:         1,
		Length:            8,
		LengthUnit:        costing.UnitFoot,
		Quantity:          4,
		PricePerBoardFoot: 12.5,
		Supplier:          "Hardwood Co",
	}
}

func testCollectionLifecycle(t *testing.T, s Store) {
	ctx := context.Background()
	created := models.Now().Add(-time.Hour)
	l := walnut("u1", "lumber-1", created)

	require.NoError(t, s.Lumber().Create(ctx, l))
	assert.ErrorIs(t, s.Lumber().Create(ctx, l), ErrDuplicate)

	got, err := s.Lumber().Get(ctx, "u1", "lumber-1")
	require.NoError(t, err)
	assert.Equal(t, "Black Walnut", got.Species)
	assert.Equal(t, costing.UnitFoot, got.LengthUnit)
	assert.Equal(t, 4, got.Quantity)
	assert.True(t, got.CreatedAt.Equal(created), "created_at %v != %v", got.CreatedAt, created)
	assert.Nil(t, got.DeletedAt)

	got.Quantity = 2
	got.UpdatedAt = models.Now()
	require.NoError(t, s.Lumber().Update(ctx, got))

	got, err = s.Lumber().Get(ctx, "u1", "lumber-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)
	assert.True(t, got.CreatedAt.Equal(created))

	assert.ErrorIs(t, s.Lumber().Restore(ctx, "u1", "lumber-1", models.Now()), ErrNotDeleted)
	assert.ErrorIs(t, s.Lumber().HardDelete(ctx, "u1", "lumber-1"), ErrNotDeleted)

	require.NoError(t, s.Lumber().SoftDelete(ctx, "u1", "lumber-1", models.Now()))
	assert.ErrorIs(t, s.Lumber().SoftDelete(ctx, "u1", "lumber-1", models.Now()), ErrDeleted)
	assert.ErrorIs(t, s.Lumber().Update(ctx, got), ErrDeleted)

	trashed, err := s.Lumber().Get(ctx, "u1", "lumber-1")
	require.NoError(t, err)
	assert.NotNil(t, trashed.DeletedAt)

	restoredAt := created.Add(time.Hour)
	require.NoError(t, s.Lumber().Restore(ctx, "u1", "lumber-1", restoredAt))
	restored, err := s.Lumber().Get(ctx, "u1", "lumber-1")
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.True(t, restored.UpdatedAt.Equal(restoredAt), "UpdatedAt = %v, want %v", restored.UpdatedAt, restoredAt)

	require.NoError(t, s.Lumber().SoftDelete(ctx, "u1", "lumber-1", models.Now()))
	require.NoError(t, s.Lumber().HardDelete(ctx, "u1", "lumber-1"))

	_, err = s.Lumber().Get(ctx, "u1", "lumber-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Lumber().HardDelete(ctx, "u1", "lumber-1"), ErrNotFound)
	assert.ErrorIs(t, s.Lumber().Restore(ctx, "u1", "missing", models.Now()), ErrNotFound)
	assert.ErrorIs(t, s.Lumber().SoftDelete(ctx, "u1", "missing", models.Now()), ErrNotFound)
}

func testOwnership(t *testing.T, s Store) {
	ctx := context.Background()
	tool := &models.Tool{Record: newRecord("owner", "tool-1", models.Now()), Name: "Table saw",
		Condition: models.ToolGood, PurchasePrice: 899}
	require.NoError(t, s.Tools().Create(ctx, tool))

	_, err := s.Tools().Get(ctx, "intruder", "tool-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Tools().SoftDelete(ctx, "intruder", "tool-1", models.Now()), ErrNotFound)

	stolen := *tool
	stolen.UserID = "intruder"
	stolen.Name = "Mine now"
	assert.ErrorIs(t, s.Tools().Update(ctx, &stolen), ErrNotFound)

	list, err := s.Tools().List(ctx, "intruder", ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := s.Tools().Get(ctx, "owner", "tool-1")
	require.NoError(t, err)
	assert.Equal(t, "Table saw", got.Name)
}

func testListFilters(t *testing.T, s Store) {
	ctx := context.Background()
	base := models.Now().Add(-time.Hour)
	names := []string{"Danish oil", "Tung oil", "Shellac flakes", "Paste wax"}
	for i, name := range names {
		f := &models.Finish{
			Record:     newRecord("u1", fmt.Sprintf("finish-%d", i), base.Add(time.Duration(i)*time.Minute)),
			Name:       name,
			FinishType: models.FinishOil,
			Price:      20,
			Quantity:   1,
		}
		require.NoError(t, s.Finishes().Create(ctx, f))
	}
	require.NoError(t, s.Finishes().SoftDelete(ctx, "u1", "finish-3", models.Now()))

	active, err := s.Finishes().List(ctx, "u1", ListFilter{})
	require.NoError(t, err)
	require.Len(t, active, 3)
	// newest first
	assert.Equal(t, "finish-2", active[0].ID)
	assert.Equal(t, "finish-0", active[2].ID)

	all, err := s.Finishes().List(ctx, "u1", ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	trash, err := s.Finishes().List(ctx, "u1", ListFilter{OnlyDeleted: true})
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, "Paste wax", trash[0].Name)

	oils, err := s.Finishes().List(ctx, "u1", ListFilter{Search: "OIL"})
	require.NoError(t, err)
	assert.Len(t, oils, 2)

	paged, err := s.Finishes().List(ctx, "u1", ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "finish-1", paged[0].ID)

	tail, err := s.Finishes().List(ctx, "u1", ListFilter{Offset: 2})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "finish-0", tail[0].ID)

	for i, species := range []string{"Ñandubay", "White oak", "Pine", "Q_sawn oak"} {
		l := &models.Lumber{
			Record:     newRecord("u1", fmt.Sprintf("lumber-%d", i), base.Add(time.Duration(i)*time.Minute)),
			Species:    species,
			Width:      4,
			Thickness:  1,
			Length:     96,
			LengthUnit: "in",
			Quantity:   1,
		}
		require.NoError(t, s.Lumber().Create(ctx, l))
	}

	searches := []struct {
		search string
		want   []string
	}{
		{"ñandu", []string{"lumber-0"}},
		{"ÑANDUBAY", []string{"lumber-0"}},
		{"OAK", []string{"lumber-3", "lumber-1"}},
		{"_", []string{"lumber-3"}},
		{"%", nil},
		{`\`, nil},
	}
	for _, tt := range searches {
		found, err := s.Lumber().List(ctx, "u1", ListFilter{Search: tt.search})
		require.NoError(t, err, tt.search)
		ids := make([]string, 0, len(found))
		for _, l := range found {
			ids = append(ids, l.ID)
		}
		if tt.want == nil {
			assert.Empty(t, ids, "search %q", tt.search)
			continue
		}
		assert.Equal(t, tt.want, ids, "search %q", tt.search)
	}
}

func testProjectRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	token := "2VKeyt0kx1ZJ7q1hPGm4jHkuvWh"
	p := &models.Project{
		Record:     newRecord("u1", "project-1", models.Now()),
		Name:       "Dining table",
		Status:     models.ProjectInProgress,
		ClientName: "Ana",
		LaborHours: 12,
		HourlyRate: 35,
		MiscCost:   20,
		SalePrice:  1500,
		StartDate:  &start,
		ShareToken: &token,
	}
	require.NoError(t, s.Projects().Create(ctx, p))

	got, err := s.Projects().Get(ctx, "u1", "project-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectInProgress, got.Status)
	require.NotNil(t, got.StartDate)
	assert.True(t, got.StartDate.Equal(start))
	assert.Nil(t, got.DueDate)
	require.NotNil(t, got.ShareToken)
	assert.Equal(t, token, *got.ShareToken)

	shared, err := s.GetProjectByShareToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "project-1", shared.ID)

	_, err = s.GetProjectByShareToken(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	other := &models.Project{Record: newRecord("u2", "project-2", models.Now()), Name: "Stool",
		Status: models.ProjectPlanned, ShareToken: &token}
	assert.ErrorIs(t, s.Projects().Create(ctx, other), ErrDuplicate)

	got.ShareToken = nil
	got.UpdatedAt = models.Now()
	require.NoError(t, s.Projects().Update(ctx, got))
	_, err = s.GetProjectByShareToken(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testProjectItems(t *testing.T, s Store) {
	ctx := context.Background()
	items := []models.ProjectItem{
		{Kind: models.ItemFinish, ItemID: "f1", Percentage: 25, SortOrder: 1},
		{Kind: models.ItemLumber, ItemID: "l1", Quantity: 3, SortOrder: 0},
		{Kind: models.ItemTool, ItemID: "t1", SortOrder: 2},
	}
	require.NoError(t, s.ReplaceProjectItems(ctx, "p1", items))

	got, err := s.ListProjectItems(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "l1", got[0].ItemID)
	assert.Equal(t, "p1", got[0].ProjectID)
	assert.Equal(t, 25.0, got[1].Percentage)

	dup := []models.ProjectItem{
		{Kind: models.ItemLumber, ItemID: "l1", Quantity: 1},
		{Kind: models.ItemLumber, ItemID: "l1", Quantity: 2},
	}
	assert.ErrorIs(t, s.ReplaceProjectItems(ctx, "p1", dup), ErrDuplicate)

	// a failed replace leaves the old lines in place
	got, err = s.ListProjectItems(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	require.NoError(t, s.ReplaceProjectItems(ctx, "p1", nil))
	got, err = s.ListProjectItems(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testHardDeleteCascades(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Lumber().Create(ctx, walnut("u1", "l1", models.Now())))
	sheet := &models.SheetGood{Record: newRecord("u1", "s1", models.Now()), Name: "Birch ply",
		Material: models.SheetPlywood, Price: 80, Quantity: 2}
	require.NoError(t, s.SheetGoods().Create(ctx, sheet))
	project := &models.Project{Record: newRecord("u1", "p1", models.Now()), Name: "Cabinet",
		Status: models.ProjectPlanned}
	require.NoError(t, s.Projects().Create(ctx, project))

	require.NoError(t, s.ReplaceProjectItems(ctx, "p1", []models.ProjectItem{
		{Kind: models.ItemLumber, ItemID: "l1", Quantity: 2},
		{Kind: models.ItemSheetGood, ItemID: "s1", Quantity: 1},
	}))

	require.NoError(t, s.Lumber().SoftDelete(ctx, "u1", "l1", models.Now()))
	lines, err := s.ListProjectItems(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, lines, 2, "soft delete keeps project lines")

	require.NoError(t, s.Lumber().HardDelete(ctx, "u1", "l1"))
	lines, err = s.ListProjectItems(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, models.ItemSheetGood, lines[0].Kind)

	require.NoError(t, s.Projects().SoftDelete(ctx, "u1", "p1", models.Now()))
	require.NoError(t, s.Projects().HardDelete(ctx, "u1", "p1"))
	lines, err = s.ListProjectItems(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func testPurgeDeleted(t *testing.T, s Store) {
	ctx := context.Background()
	now := models.Now()
	old := now.Add(-45 * 24 * time.Hour)

	for _, id := range []string{"c-old", "c-recent", "c-active"} {
		c := &models.Consumable{Record: newRecord("u1", id, old), Name: "Sandpaper " + id,
			Category: models.ConsumableAbrasive, PackagePrice: 10, PackageQuantity: 50, Unit: "sheet", Quantity: 20}
		require.NoError(t, s.Consumables().Create(ctx, c))
	}
	require.NoError(t, s.Consumables().SoftDelete(ctx, "u1", "c-old", old))
	require.NoError(t, s.Consumables().SoftDelete(ctx, "u1", "c-recent", now))
	require.NoError(t, s.ReplaceProjectItems(ctx, "p1", []models.ProjectItem{
		{Kind: models.ItemConsumable, ItemID: "c-old", Quantity: 5},
		{Kind: models.ItemConsumable, ItemID: "c-active", Quantity: 5},
	}))

	purged, err := s.PurgeDeleted(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged[TableConsumables])
	assert.Equal(t, int64(0), purged[TableLumber])

	_, err = s.Consumables().Get(ctx, "u1", "c-old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Consumables().Get(ctx, "u1", "c-recent")
	assert.NoError(t, err)

	lines, err := s.ListProjectItems(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "c-active", lines[0].ItemID)
}

func testUsersAndSessions(t *testing.T, s Store) {
	ctx := context.Background()
	now := models.Now()
	u := &models.User{ID: "u1", Email: "ana@example.com", Name: "Ana", PasswordHash: "hash",
		Currency: "USD", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateUser(ctx, u))

	dup := *u
	dup.ID = "u2"
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrDuplicate)

	got, err := s.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	live := &models.Session{ID: "s-live", UserID: "u1", TokenHash: "h1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	dead := &models.Session{ID: "s-dead", UserID: "u1", TokenHash: "h2", CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, s.CreateSession(ctx, live))
	require.NoError(t, s.CreateSession(ctx, dead))

	sess, err := s.GetSession(ctx, "s-live")
	require.NoError(t, err)
	assert.Equal(t, "h1", sess.TokenHash)
	assert.True(t, sess.ExpiresAt.Equal(live.ExpiresAt))

	n, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.DeleteSession(ctx, "s-live"))
	assert.ErrorIs(t, s.DeleteSession(ctx, "s-live"), ErrNotFound)
	_, err = s.GetSession(ctx, "s-live")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testRecordCounts(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Lumber().Create(ctx, walnut("u1", "l1", models.Now())))
	require.NoError(t, s.Lumber().Create(ctx, walnut("u2", "l2", models.Now())))
	require.NoError(t, s.Lumber().SoftDelete(ctx, "u2", "l2", models.Now()))

	counts, err := s.RecordCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 6)

	byTable := make(map[string]RecordCount)
	for _, c := range counts {
		byTable[c.Table] = c
	}
	assert.Equal(t, RecordCount{Table: TableLumber, Active: 1, Trashed: 1}, byTable[TableLumber])
	assert.Equal(t, RecordCount{Table: TableTools}, byTable[TableTools])

	require.NoError(t, s.HealthCheck(ctx))
	require.NoError(t, s.Vacuum(ctx))
}
