package graph

import (
	"encoding/json"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/psantana5/grain/internal/shop"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
)

type entity[T any] interface {
	*T
	models.Entity
}

// resourceSchema names the fields generated for one record type
type resourceSchema struct {
	typeName string // Lumber
	single   string // lumber
	plural   string // lumbers
	object   *graphql.Object
	input    *graphql.InputObject
}

var idArg = graphql.FieldConfigArgument{
	"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
}

// addResource registers <single>, <plural>, create<T>, update<T>, delete<T>,
// restore<T> and destroy<T> for res
func addResource[T any, PT entity[T]](r *Resolver, query, mutation graphql.Fields, rs resourceSchema, res *shop.Resource[T, PT]) {
	query[rs.single] = &graphql.Field{
		Type: rs.object,
		Args: idArg,
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			return res.Get(p.Context, userID, p.Args["id"].(string))
		}),
	}
	query[rs.plural] = &graphql.Field{
		Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(rs.object))),
		Args: graphql.FieldConfigArgument{
			"filter": &graphql.ArgumentConfig{Type: listFilterInput},
		},
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			filter, err := listFilter(p.Args["filter"])
			if err != nil {
				return nil, err
			}
			return res.List(p.Context, userID, filter)
		}),
	}

	mutation["create"+rs.typeName] = &graphql.Field{
		Type: graphql.NewNonNull(rs.object),
		Args: graphql.FieldConfigArgument{
			"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(rs.input)},
		},
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			item := new(T)
			if err := decodeInput(p.Args["input"], item); err != nil {
				return nil, err
			}
			return res.Create(p.Context, userID, item)
		}),
	}
	mutation["update"+rs.typeName] = &graphql.Field{
		Type: graphql.NewNonNull(rs.object),
		Args: graphql.FieldConfigArgument{
			"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(rs.input)},
		},
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			return res.Update(p.Context, userID, p.Args["id"].(string), func(item *T) error {
				return decodeInput(p.Args["input"], item)
			})
		}),
	}
	mutation["delete"+rs.typeName] = &graphql.Field{
		Type:        graphql.NewNonNull(rs.object),
		Description: "Move the record to the trash",
		Args:        idArg,
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			return res.Delete(p.Context, userID, p.Args["id"].(string))
		}),
	}
	mutation["restore"+rs.typeName] = &graphql.Field{
		Type:        graphql.NewNonNull(rs.object),
		Description: "Take the record out of the trash",
		Args:        idArg,
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			return res.Restore(p.Context, userID, p.Args["id"].(string))
		}),
	}
	mutation["destroy"+rs.typeName] = &graphql.Field{
		Type:        graphql.NewNonNull(graphql.Boolean),
		Description: "Permanently remove a trashed record",
		Args:        idArg,
		Resolve: r.authed(func(p graphql.ResolveParams, userID string) (interface{}, error) {
			if err := res.Destroy(p.Context, userID, p.Args["id"].(string)); err != nil {
				return nil, err
			}
			return true, nil
		}),
	}
}

// decodeInput copies the fields present in a GraphQL input object onto dst.
// Absent fields keep their current value.
func decodeInput(input interface{}, dst interface{}) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalid, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalid, err)
	}
	return nil
}

func listFilter(arg interface{}) (store.ListFilter, error) {
	var f struct {
		IncludeDeleted bool   `json:"includeDeleted"`
		OnlyDeleted    bool   `json:"onlyDeleted"`
		Search         string `json:"search"`
		Limit          int    `json:"limit"`
		Offset         int    `json:"offset"`
	}
	if arg != nil {
		if err := decodeInput(arg, &f); err != nil {
			return store.ListFilter{}, err
		}
	}
	if f.Limit < 0 || f.Offset < 0 {
		return store.ListFilter{}, fmt.Errorf("%w: limit and offset must not be negative", models.ErrInvalid)
	}
	return store.ListFilter{
		IncludeDeleted: f.IncludeDeleted,
		OnlyDeleted:    f.OnlyDeleted,
		Search:         f.Search,
		Limit:          f.Limit,
		Offset:         f.Offset,
	}, nil
}
