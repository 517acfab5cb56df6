// Package graph serves the Grain GraphQL API: a code-first graphql-go schema
// over the shop service and the auth manager.
package graph

import (
	"context"
	"fmt"
	"math"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/psantana5/grain/internal/costing"
	"github.com/psantana5/grain/internal/shop"
	"github.com/psantana5/grain/pkg/auth"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/ratelimit"
)

// Resolver holds the dependencies of every resolver
type Resolver struct {
	shop *shop.Service
	auth *auth.Manager
	// limiter throttles register and login per client IP; nil disables throttling
	limiter *ratelimit.Limiter
	log     *zap.Logger
}

// NewResolver creates a resolver
func NewResolver(svc *shop.Service, authManager *auth.Manager, limiter *ratelimit.Limiter, log *zap.Logger) *Resolver {
	return &Resolver{shop: svc, auth: authManager, limiter: limiter, log: log.Named("graph")}
}

// resolve maps errors of fn to coded GraphQL errors
func (r *Resolver) resolve(fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		v, err := fn(p)
		if err != nil {
			return nil, classify(p.Context, r.log, err)
		}
		return v, nil
	}
}

// authed resolves only when the request carries an authenticated user
func (r *Resolver) authed(fn func(p graphql.ResolveParams, userID string) (interface{}, error)) graphql.FieldResolveFn {
	return r.resolve(func(p graphql.ResolveParams) (interface{}, error) {
		userID, err := auth.UserIDFromContext(p.Context)
		if err != nil {
			return nil, err
		}
		return fn(p, userID)
	})
}

// Schema builds the executable schema
func (r *Resolver) Schema() (graphql.Schema, error) {
	itemType := r.projectItemType()
	projectType := r.projectType(itemType)

	query := graphql.Fields{}
	mutation := graphql.Fields{}

	addResource(r, query, mutation, resourceSchema{"Lumber", "lumber", "lumbers", lumberType, lumberInput}, r.shop.Lumber)
	addResource(r, query, mutation, resourceSchema{"Finish", "finish", "finishes", finishType, finishInput}, r.shop.Finishes)
	addResource(r, query, mutation, resourceSchema{"SheetGood", "sheetGood", "sheetGoods", sheetGoodType, sheetGoodInput}, r.shop.SheetGoods)
	addResource(r, query, mutation, resourceSchema{"Consumable", "consumable", "consumables", consumableType, consumableInput}, r.shop.Consumables)
	addResource(r, query, mutation, resourceSchema{"Tool", "tool", "tools", toolType, toolInput}, r.shop.Tools)
	addResource(r, query, mutation, resourceSchema{"Project", "project", "projects", projectType, projectInput}, r.shop.Projects)

	r.addAuth(query, mutation)
	r.addProjectOperations(query, mutation, projectType)
	r.addCalculators(query)
	query["dashboard"] = &graphql.Field{
		Type: graphql.NewNonNull(r.dashboardType(projectType)),
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			return r.shop.Dashboard(p.Context, userID)
		}),
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: query}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutation}),
	})
}

func (r *Resolver) projectItemType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name:        "ProjectItem",
		Description: "A project line priced against the inventory record it points at",
		Fields: graphql.Fields{
			"kind":        prop(graphql.NewNonNull(itemKindEnum), func(i shop.PricedItem) interface{} { return i.Kind }),
			"itemId":      prop(graphql.NewNonNull(graphql.ID), func(i shop.PricedItem) interface{} { return i.ItemID }),
			"quantity":    prop(nonNullFloat, func(i shop.PricedItem) interface{} { return i.Quantity }),
			"percentage":  prop(nonNullFloat, func(i shop.PricedItem) interface{} { return i.Percentage }),
			"sortOrder":   prop(nonNullInt, func(i shop.PricedItem) interface{} { return i.SortOrder }),
			"name":        plain(nonNullString),
			"unit":        plain(graphql.String),
			"amount":      plain(nonNullFloat),
			"unitCost":    prop(nonNullFloat, func(i shop.PricedItem) interface{} { return costing.RoundMoney(i.UnitCost) }),
			"cost":        prop(nonNullFloat, func(i shop.PricedItem) interface{} { return costing.RoundMoney(i.Cost) }),
			"itemDeleted": plain(graphql.NewNonNull(graphql.Boolean)),
		},
	})
}

func (r *Resolver) projectType(itemType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Project",
		Fields: recordFields(graphql.Fields{
			"name":        plain(nonNullString),
			"description": plain(graphql.String),
			"status":      plain(graphql.NewNonNull(projectStatusEnum)),
			"clientName":  plain(graphql.String),
			"laborHours":  plain(nonNullFloat),
			"hourlyRate":  plain(nonNullFloat),
			"miscCost":    plain(nonNullFloat),
			"salePrice":   plain(nonNullFloat),
			"startDate":   plain(graphql.DateTime),
			"dueDate":     plain(graphql.DateTime),
			"completedAt": plain(graphql.DateTime),
			"shareToken":  plain(graphql.String),
			"notes":       plain(graphql.String),
			"shared":      prop(graphql.NewNonNull(graphql.Boolean), func(p *models.Project) interface{} { return p.Shared() }),
			"items": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(itemType))),
				Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
					project := p.Source.(*models.Project)
					return r.shop.ProjectItems(p.Context, userID, project.ID)
				}),
			},
			"cost": &graphql.Field{
				Type: graphql.NewNonNull(breakdownType),
				Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
					project := p.Source.(*models.Project)
					return r.shop.ProjectCost(p.Context, userID, project.ID)
				}),
			},
		}),
	})
}

func (r *Resolver) dashboardType(projectType *graphql.Object) *graphql.Object {
	kind := graphql.NewNonNull(kindStatsType)
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Dashboard",
		Fields: graphql.Fields{
			"lumber":             plain(kind),
			"finishes":           plain(kind),
			"sheetGoods":         plain(kind),
			"consumables":        plain(kind),
			"tools":              plain(kind),
			"lumberBoardFeet":    plain(nonNullFloat),
			"inventoryValue":     plain(nonNullFloat),
			"totalValue":         plain(nonNullFloat),
			"projectCount":       plain(nonNullInt),
			"projectsByStatus":   plain(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(statusCountType)))),
			"totalProjectCost":   plain(nonNullFloat),
			"averageProjectCost": plain(nonNullFloat),
			"trashCount":         plain(nonNullInt),
			"recentProjects":     plain(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(projectType)))),
		},
	})
}

type authPayload struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (r *Resolver) throttle(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	if !r.limiter.Allow(ClientIPFromContext(ctx)) {
		return errRateLimited
	}
	return nil
}

func (r *Resolver) addAuth(query, mutation graphql.Fields) {
	credentials := graphql.FieldConfigArgument{
		"email":    &graphql.ArgumentConfig{Type: nonNullString},
		"password": &graphql.ArgumentConfig{Type: nonNullString},
	}

	query["me"] = &graphql.Field{
		Type: userType,
		Resolve: r.resolve(func(p graphql.ResolveParams) (interface{}, error) {
			return auth.UserFromContext(p.Context)
		}),
	}

	mutation["register"] = &graphql.Field{
		Type: graphql.NewNonNull(authPayloadType),
		Args: graphql.FieldConfigArgument{
			"email":    credentials["email"],
			"password": credentials["password"],
			"name":     &graphql.ArgumentConfig{Type: graphql.String},
		},
		Resolve: r.resolve(func(p graphql.ResolveParams) (interface{}, error) {
			if err := r.throttle(p.Context); err != nil {
				return nil, err
			}
			name, _ := p.Args["name"].(string)
			user, token, err := r.auth.Register(p.Context, p.Args["email"].(string), p.Args["password"].(string),
				name, sessionMeta(p.Context))
			if err != nil {
				return nil, err
			}
			return authPayload{Token: token, User: user}, nil
		}),
	}
	mutation["login"] = &graphql.Field{
		Type: graphql.NewNonNull(authPayloadType),
		Args: credentials,
		Resolve: r.resolve(func(p graphql.ResolveParams) (interface{}, error) {
			if err := r.throttle(p.Context); err != nil {
				return nil, err
			}
			user, token, err := r.auth.Login(p.Context, p.Args["email"].(string), p.Args["password"].(string),
				sessionMeta(p.Context))
			if err != nil {
				return nil, err
			}
			return authPayload{Token: token, User: user}, nil
		}),
	}
	mutation["logout"] = &graphql.Field{
		Type: graphql.NewNonNull(graphql.Boolean),
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			if err := r.auth.Logout(p.Context, auth.TokenFromContext(p.Context)); err != nil {
				return nil, err
			}
			return true, nil
		}),
	}
}

func (r *Resolver) addProjectOperations(query, mutation graphql.Fields, projectType *graphql.Object) {
	query["projectCost"] = &graphql.Field{
		Type: graphql.NewNonNull(breakdownType),
		Args: idArg,
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			return r.shop.ProjectCost(p.Context, userID, p.Args["id"].(string))
		}),
	}
	query["sharedProject"] = &graphql.Field{
		Type: sharedProjectType,
		Args: graphql.FieldConfigArgument{
			"token": &graphql.ArgumentConfig{Type: nonNullString},
		},
		Resolve: r.resolve(func(p graphql.ResolveParams) (interface{}, error) {
			return r.shop.SharedProject(p.Context, p.Args["token"].(string))
		}),
	}

	// line mutations return the project so clients can read items and cost in one round trip
	withProject := func(fn func(p graphql.ResolveParams, userID, projectID string) error) graphql.FieldResolveFn {
		return r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			projectID := p.Args["projectId"].(string)
			if err := fn(p, userID, projectID); err != nil {
				return nil, err
			}
			return r.shop.Projects.Get(p.Context, userID, projectID)
		})
	}
	projectID := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}

	mutation["setProjectItems"] = &graphql.Field{
		Type: graphql.NewNonNull(projectType),
		Args: graphql.FieldConfigArgument{
			"projectId": projectID,
			"items":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(projectItemInput)))},
		},
		Resolve: withProject(func(p graphql.ResolveParams, userID, projectID string) error {
			var items []models.ProjectItem
			if err := decodeInput(p.Args["items"], &items); err != nil {
				return err
			}
			_, err := r.shop.SetProjectItems(p.Context, userID, projectID, items)
			return err
		}),
	}
	mutation["addProjectItem"] = &graphql.Field{
		Type: graphql.NewNonNull(projectType),
		Args: graphql.FieldConfigArgument{
			"projectId": projectID,
			"item":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(projectItemInput)},
		},
		Resolve: withProject(func(p graphql.ResolveParams, userID, projectID string) error {
			var item models.ProjectItem
			if err := decodeInput(p.Args["item"], &item); err != nil {
				return err
			}
			_, err := r.shop.AddProjectItem(p.Context, userID, projectID, item)
			return err
		}),
	}
	mutation["removeProjectItem"] = &graphql.Field{
		Type: graphql.NewNonNull(projectType),
		Args: graphql.FieldConfigArgument{
			"projectId": projectID,
			"kind":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(itemKindEnum)},
			"itemId":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
		},
		Resolve: withProject(func(p graphql.ResolveParams, userID, projectID string) error {
			_, err := r.shop.RemoveProjectItem(p.Context, userID, projectID,
				p.Args["kind"].(models.ItemKind), p.Args["itemId"].(string))
			return err
		}),
	}

	mutation["shareProject"] = &graphql.Field{
		Type: graphql.NewNonNull(projectType),
		Args: idArg,
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			return r.shop.ShareProject(p.Context, userID, p.Args["id"].(string))
		}),
	}
	mutation["unshareProject"] = &graphql.Field{
		Type: graphql.NewNonNull(projectType),
		Args: idArg,
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			return r.shop.UnshareProject(p.Context, userID, p.Args["id"].(string))
		}),
	}
}

func (r *Resolver) addCalculators(query graphql.Fields) {
	query["boardFeet"] = &graphql.Field{
		Type:        nonNullFloat,
		Description: "Board feet of quantity boards; width and thickness in inches, length in unit",
		Args: graphql.FieldConfigArgument{
			"width":     &graphql.ArgumentConfig{Type: nonNullFloat},
			"thickness": &graphql.ArgumentConfig{Type: nonNullFloat},
			"length":    &graphql.ArgumentConfig{Type: nonNullFloat},
			"unit":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(costing.UnitInch)},
			"quantity":  &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1.0},
		},
		Resolve: r.resolve(func(p graphql.ResolveParams) (interface{}, error) {
			if err := nonNegativeArgs(p.Args, "width", "thickness", "length", "quantity"); err != nil {
				return nil, err
			}
			unit, _ := p.Args["unit"].(string)
			length, err := costing.ToInches(p.Args["length"].(float64), costing.LengthUnit(unit))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", models.ErrInvalid, err)
			}
			quantity, _ := p.Args["quantity"].(float64)
			bf := costing.BoardFeet(p.Args["width"].(float64), p.Args["thickness"].(float64), length, quantity)
			if math.IsNaN(bf) || math.IsInf(bf, 0) {
				return nil, fmt.Errorf("%w: dimensions are too large", models.ErrInvalid)
			}
			return bf, nil
		}),
	}
	query["unitPrice"] = &graphql.Field{
		Type:        nonNullFloat,
		Description: "Price of one unit of a package; 0 when the package is empty",
		Args: graphql.FieldConfigArgument{
			"packagePrice":    &graphql.ArgumentConfig{Type: nonNullFloat},
			"packageQuantity": &graphql.ArgumentConfig{Type: nonNullFloat},
		},
		Resolve: r.resolve(func(p graphql.ResolveParams) (interface{}, error) {
			if err := nonNegativeArgs(p.Args, "packagePrice", "packageQuantity"); err != nil {
				return nil, err
			}
			return costing.UnitPrice(p.Args["packagePrice"].(float64), p.Args["packageQuantity"].(float64)), nil
		}),
	}
}

// nonNegativeArgs rejects calculator arguments that are negative or not finite
func nonNegativeArgs(args map[string]interface{}, names ...string) error {
	for _, name := range names {
		v, ok := args[name].(float64)
		if !ok {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", models.ErrInvalid, name)
		}
	}
	return nil
}
