package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"

	"github.com/psantana5/grain/internal/shop"
	"github.com/psantana5/grain/pkg/auth"
	"github.com/psantana5/grain/pkg/logging/loggingtest"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/ratelimit"
	"github.com/psantana5/grain/pkg/store"
)

type harness struct {
	t      *testing.T
	schema graphql.Schema
	auth   *auth.Manager
}

func newHarness(t *testing.T, limiter *ratelimit.Limiter) *harness {
	t.Helper()
	s := store.NewMemoryStore()
	log := loggingtest.New(t)
	authManager := auth.NewManager(s, auth.Options{BcryptCost: bcrypt.MinCost, SessionTTL: time.Hour})
	schema, err := NewResolver(shop.New(s, log), authManager, limiter, log).Schema()
	require.NoError(t, err)
	return &harness{t: t, schema: schema, auth: authManager}
}

// do runs a request and fails the test on any GraphQL error
func (h *harness) do(ctx context.Context, query string, vars map[string]interface{}) map[string]interface{} {
	h.t.Helper()
	res := Execute(ctx, h.schema, Request{Query: query, Variables: vars})
	require.Empty(h.t, res.Errors, "query %s", query)
	return res.Data.(map[string]interface{})
}

// code runs a request expecting exactly one error and returns its code
func (h *harness) code(ctx context.Context, query string, vars map[string]interface{}) string {
	h.t.Helper()
	res := Execute(ctx, h.schema, Request{Query: query, Variables: vars})
	require.Len(h.t, res.Errors, 1, "query %s", query)
	code, _ := res.Errors[0].Extensions["code"].(string)
	return code
}

// login registers a user and returns a context carrying it
func (h *harness) login(email string) context.Context {
	h.t.Helper()
	ctx := WithClient(context.Background(), "192.0.2.1", "test")
	data := h.do(ctx, `mutation($email: String!) {
		register(email: $email, password: "hunter2hunter2", name: "Shop") { token user { id email } }
	}`, map[string]interface{}{"email": email})

	token := data["register"].(map[string]interface{})["token"].(string)
	user, err := h.auth.Authenticate(ctx, token)
	require.NoError(h.t, err)
	return auth.WithUser(ctx, user, token)
}

func TestLumberLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := h.login("ana@example.com")

	data := h.do(ctx, `mutation {
		createLumber(input: {species: "Walnut", width: 6, thickness: 1, length: 8, lengthUnit: "ft", quantity: 3, pricePerBoardFoot: 10}) {
			id species lengthUnit lengthInches boardFeet inventoryValue deleted
		}
	}`, nil)
	lumber := data["createLumber"].(map[string]interface{})
	id := lumber["id"].(string)
	assert.Equal(t, "ft", lumber["lengthUnit"])
	assert.Equal(t, 96.0, lumber["lengthInches"])
	assert.Equal(t, 12.0, lumber["boardFeet"])
	assert.Equal(t, 120.0, lumber["inventoryValue"])
	assert.Equal(t, false, lumber["deleted"])

	vars := map[string]interface{}{"id": id}
	data = h.do(ctx, `mutation($id: ID!) { updateLumber(id: $id, input: {quantity: 5}) { species quantity } }`, vars)
	assert.Equal(t, map[string]interface{}{"species": "Walnut", "quantity": 5}, data["updateLumber"])

	assert.Equal(t, CodeConflict, h.code(ctx, `mutation($id: ID!) { destroyLumber(id: $id) }`, vars))

	data = h.do(ctx, `mutation($id: ID!) { deleteLumber(id: $id) { deleted deletedAt } }`, vars)
	assert.Equal(t, true, data["deleteLumber"].(map[string]interface{})["deleted"])
	assert.NotNil(t, data["deleteLumber"].(map[string]interface{})["deletedAt"])

	data = h.do(ctx, `{ active: lumbers { id } trash: lumbers(filter: {onlyDeleted: true}) { id } }`, nil)
	assert.Empty(t, data["active"])
	assert.Len(t, data["trash"], 1)

	data = h.do(ctx, `mutation($id: ID!) { restoreLumber(id: $id) { deleted } }`, vars)
	assert.Equal(t, false, data["restoreLumber"].(map[string]interface{})["deleted"])

	h.do(ctx, `mutation($id: ID!) { deleteLumber(id: $id) { id } }`, vars)
	data = h.do(ctx, `mutation($id: ID!) { destroyLumber(id: $id) }`, vars)
	assert.Equal(t, true, data["destroyLumber"])
	assert.Equal(t, CodeNotFound, h.code(ctx, `query($id: ID!) { lumber(id: $id) { id } }`, vars))
}

func TestErrorCodes(t *testing.T) {
	h := newHarness(t, nil)
	ctx := h.login("ana@example.com")
	other := h.login("bob@example.com")

	data := h.do(ctx, `mutation { createTool(input: {name: "Router", condition: NEEDS_REPAIR}) { id condition } }`, nil)
	tool := data["createTool"].(map[string]interface{})
	assert.Equal(t, "NEEDS_REPAIR", tool["condition"])
	vars := map[string]interface{}{"id": tool["id"]}

	assert.Equal(t, CodeUnauthenticated, h.code(context.Background(), `{ tools { id } }`, nil))
	assert.Equal(t, CodeUnauthenticated, h.code(context.Background(), `{ me { id } }`, nil))
	assert.Equal(t, CodeNotFound, h.code(other, `query($id: ID!) { tool(id: $id) { id } }`, vars))
	assert.Equal(t, CodeBadUserInput, h.code(ctx, `mutation { createTool(input: {brand: "Festool"}) { id } }`, nil))
	assert.Equal(t, CodeBadUserInput, h.code(ctx, `mutation { createLumber(input: {species: "Oak", width: 1, thickness: 1, length: 1, lengthUnit: "furlong"}) { id } }`, nil))
	assert.Equal(t, CodeConflict, h.code(ctx, `mutation($id: ID!) { restoreTool(id: $id) { id } }`, vars))

	res := Execute(context.Background(), h.schema, Request{
		Query: `mutation { register(email: "ana@example.com", password: "whatever123") { token } }`,
	})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeConflict, res.Errors[0].Extensions["code"])
}

func TestProjectCostAndSharing(t *testing.T) {
	h := newHarness(t, nil)
	ctx := h.login("ana@example.com")

	lumberID := h.do(ctx, `mutation {
		createLumber(input: {species: "Cherry", width: 6, thickness: 1, length: 96, quantity: 4, pricePerBoardFoot: 9}) { id }
	}`, nil)["createLumber"].(map[string]interface{})["id"]
	finishID := h.do(ctx, `mutation { createFinish(input: {name: "Shellac", finishType: SHELLAC, price: 30, quantity: 1}) { id } }`,
		nil)["createFinish"].(map[string]interface{})["id"]
	projectID := h.do(ctx, `mutation {
		createProject(input: {name: "Bookshelf", status: IN_PROGRESS, laborHours: 2, hourlyRate: 25, salePrice: 400}) { id status }
	}`, nil)["createProject"].(map[string]interface{})["id"]

	data := h.do(ctx, `mutation($p: ID!, $items: [ProjectItemInput!]!) {
		setProjectItems(projectId: $p, items: $items) {
			items { kind name amount unit cost }
			cost { total materialCost finishCost laborCost profit }
		}
	}`, map[string]interface{}{
		"p": projectID,
		"items": []interface{}{
			map[string]interface{}{"kind": "LUMBER", "itemId": lumberID, "quantity": 2},
			map[string]interface{}{"kind": "FINISH", "itemId": finishID, "percentage": 50},
		},
	})
	project := data["setProjectItems"].(map[string]interface{})
	items := project["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, map[string]interface{}{"kind": "LUMBER", "name": "Cherry", "amount": 8.0, "unit": "bf", "cost": 72.0}, items[0])
	assert.Equal(t, map[string]interface{}{
		"total": 137.0, "materialCost": 72.0, "finishCost": 15.0, "laborCost": 50.0, "profit": 263.0,
	}, project["cost"])

	data = h.do(ctx, `mutation($p: ID!) { removeProjectItem(projectId: $p, kind: FINISH, itemId: "`+fmt.Sprint(finishID)+`") { items { kind } } }`,
		map[string]interface{}{"p": projectID})
	assert.Len(t, data["removeProjectItem"].(map[string]interface{})["items"], 1)

	data = h.do(ctx, `mutation($id: ID!) { shareProject(id: $id) { shared shareToken } }`, map[string]interface{}{"id": projectID})
	shared := data["shareProject"].(map[string]interface{})
	assert.Equal(t, true, shared["shared"])
	token := shared["shareToken"].(string)

	// the public view needs no session
	data = h.do(context.Background(), `query($t: String!) { sharedProject(token: $t) { name status cost { total lines { name } } } }`,
		map[string]interface{}{"t": token})
	view := data["sharedProject"].(map[string]interface{})
	assert.Equal(t, "Bookshelf", view["name"])
	assert.Equal(t, "IN_PROGRESS", view["status"])
	assert.Equal(t, 122.0, view["cost"].(map[string]interface{})["total"])

	h.do(ctx, `mutation($id: ID!) { unshareProject(id: $id) { shared } }`, map[string]interface{}{"id": projectID})
	assert.Equal(t, CodeNotFound, h.code(context.Background(), `query($t: String!) { sharedProject(token: $t) { name } }`,
		map[string]interface{}{"t": token}))
}

func TestDashboardQuery(t *testing.T) {
	h := newHarness(t, nil)
	ctx := h.login("ana@example.com")
	h.do(ctx, `mutation { createSheetGood(input: {name: "MDF", material: MDF, price: 40, quantity: 2}) { id } }`, nil)
	h.do(ctx, `mutation { createProject(input: {name: "Cabinet"}) { id } }`, nil)

	data := h.do(ctx, `{ dashboard { sheetGoods { count value } inventoryValue projectCount projectsByStatus { status count } recentProjects { name } } }`, nil)
	d := data["dashboard"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"count": 1, "value": 80.0}, d["sheetGoods"])
	assert.Equal(t, 80.0, d["inventoryValue"])
	assert.Equal(t, 1, d["projectCount"])
	assert.Contains(t, d["projectsByStatus"], map[string]interface{}{"status": "PLANNED", "count": 1})
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "Cabinet"}}, d["recentProjects"])
}

func TestCalculators(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	data := h.do(ctx, `{
		ft: boardFeet(width: 6, thickness: 1, length: 8, unit: "ft")
		vara: boardFeet(width: 12, thickness: 1, length: 1, unit: "vara", quantity: 2)
		inches: boardFeet(width: 12, thickness: 1, length: 12)
		screw: unitPrice(packagePrice: 12, packageQuantity: 100)
		empty: unitPrice(packagePrice: 12, packageQuantity: 0)
	}`, nil)
	assert.Equal(t, 4.0, data["ft"])
	assert.InDelta(t, 5.5, data["vara"], 1e-12)
	assert.Equal(t, 1.0, data["inches"])
	assert.Equal(t, 0.12, data["screw"])
	assert.Equal(t, 0.0, data["empty"])

	assert.Equal(t, CodeBadUserInput, h.code(ctx, `{ boardFeet(width: 1, thickness: 1, length: 1, unit: "cubit") }`, nil))

	rejected := []string{
		`{ boardFeet(width: -6, thickness: -1, length: 8) }`,
		`{ boardFeet(width: 6, thickness: 1, length: -8) }`,
		`{ boardFeet(width: 6, thickness: 1, length: 8, quantity: -2) }`,
		`{ unitPrice(packagePrice: -12, packageQuantity: 100) }`,
		`{ unitPrice(packagePrice: -12, packageQuantity: -100) }`,
	}
	for _, q := range rejected {
		assert.Equal(t, CodeBadUserInput, h.code(ctx, q, nil), q)
	}
}

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t, ratelimit.NewLimiter(0.001, 2))
	ctx := WithClient(context.Background(), "198.51.100.7", "test")
	login := `mutation { login(email: "nobody@example.com", password: "wrong-password") { token } }`

	assert.Equal(t, CodeUnauthenticated, h.code(ctx, login, nil))
	assert.Equal(t, CodeUnauthenticated, h.code(ctx, login, nil))
	assert.Equal(t, CodeRateLimited, h.code(ctx, login, nil))

	// other clients are unaffected
	other := WithClient(context.Background(), "198.51.100.8", "test")
	assert.Equal(t, CodeUnauthenticated, h.code(other, login, nil))
}

func TestLogout(t *testing.T) {
	h := newHarness(t, nil)
	ctx := h.login("ana@example.com")

	data := h.do(ctx, `mutation { logout }`, nil)
	assert.Equal(t, true, data["logout"])

	_, err := h.auth.Authenticate(ctx, auth.TokenFromContext(ctx))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestClassifyMasksInternalErrors(t *testing.T) {
	log, logs := loggingtest.NewObserved(t, zapcore.ErrorLevel)

	err := classify(context.Background(), log, errors.New("pq: connection refused"))
	var gqlErr *Error
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, CodeInternal, gqlErr.Code)
	assert.Equal(t, "internal server error", gqlErr.Error())
	assert.Equal(t, 1, logs.FilterMessage("Resolver failed").Len())

	err = classify(context.Background(), log, fmt.Errorf("wrapped: %w", models.ErrInvalid))
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, CodeBadUserInput, gqlErr.Code)
}

func TestOperationLabel(t *testing.T) {
	schema := newHarness(t, nil).schema

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"query field", Request{Query: `{ dashboard { projectCount } }`}, "dashboard"},
		{"mutation field", Request{Query: `mutation { createTool(input: {name: "x"}) { id } }`}, "createTool"},
		{"named operation", Request{Query: `query Me { me { id } }`, OperationName: "Me"}, "me"},
		{"picks the selected operation", Request{
			Query:         `query A { me { id } } mutation B { logout }`,
			OperationName: "B",
		}, "logout"},
		{"operation name not in document", Request{Query: `{ me { id } }`, OperationName: "op7"}, LabelUnknown},
		{"ambiguous document", Request{Query: `query A { me { id } } query B { tools { id } }`}, LabelUnknown},
		{"field not in schema", Request{Query: `{ nothingHere }`}, LabelUnknown},
		{"query field used as mutation", Request{Query: `mutation { dashboard { projectCount } }`}, LabelUnknown},
		{"introspection", Request{Query: `{ __schema { types { name } } }`}, LabelIntrospection},
		{"parse error", Request{Query: `{`}, LabelInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OperationLabel(schema, tt.req))
		})
	}

	labels := map[string]bool{}
	for i := 0; i < 20; i++ {
		labels[OperationLabel(schema, Request{Query: `{ me { id } }`, OperationName: fmt.Sprintf("op%d", i)})] = true
	}
	assert.Len(t, labels, 1, "client chosen names must not create new labels")
}
