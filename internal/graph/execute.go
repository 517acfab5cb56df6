package graph

import (
	"context"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// Request is a GraphQL request as sent over HTTP
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Execute runs a request against the schema
func Execute(ctx context.Context, schema graphql.Schema, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

// Fixed labels for requests that do not resolve to a schema field
const (
	LabelInvalid       = "invalid"
	LabelUnknown       = "unknown"
	LabelIntrospection = "introspection"
)

// OperationLabel names a request for metrics: the first top-level field of the
// operation that runs. Only fields defined by the schema are returned, so the
// label set stays bounded whatever the client sends.
func OperationLabel(schema graphql.Schema, req Request) string {
	doc, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		return LabelInvalid
	}

	var op *ast.OperationDefinition
	count := 0
	for _, def := range doc.Definitions {
		d, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		count++
		if req.OperationName == "" || (d.Name != nil && d.Name.Value == req.OperationName) {
			if op == nil {
				op = d
			}
		}
	}
	if op == nil || (req.OperationName == "" && count > 1) || op.SelectionSet == nil {
		return LabelUnknown
	}

	var root *graphql.Object
	switch op.Operation {
	case ast.OperationTypeQuery:
		root = schema.QueryType()
	case ast.OperationTypeMutation:
		root = schema.MutationType()
	}
	if root == nil {
		return LabelUnknown
	}

	for _, sel := range op.SelectionSet.Selections {
		field, ok := sel.(*ast.Field)
		if !ok || field.Name == nil {
			continue
		}
		name := field.Name.Value
		if strings.HasPrefix(name, "__") {
			return LabelIntrospection
		}
		if _, ok := root.Fields()[name]; ok {
			return name
		}
		return LabelUnknown
	}
	return LabelUnknown
}
