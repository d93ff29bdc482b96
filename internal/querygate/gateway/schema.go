package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
	"github.com/vaibhaw-/QueryGate/internal/querygate/catalog"
	"github.com/vaibhaw-/QueryGate/internal/querygate/schemaops"
)

// ErrUnavailable is returned when the gateway was built without the
// component an operation needs.
var ErrUnavailable = errors.New("operation not available")

// applySchema runs op and audits it synchronously as a schema modification.
func (g *Gateway) applySchema(ctx context.Context, source, resource string, op func(context.Context) (schemaops.Outcome, error)) (schemaops.Outcome, error) {
	if g.schema == nil {
		return schemaops.Outcome{}, ErrUnavailable
	}
	out, err := op(ctx)
	action := out.Statement
	if action == "" {
		action = "schema operation on " + resource
	}
	ev := audit.NewEvent(audit.SchemaModification, source, action, resource).WithSuccess(err == nil)
	if err != nil {
		ev = ev.WithDetails(err.Error())
	} else {
		ev = ev.WithDetails(out.Message)
	}
	g.RecordAudit(ev)
	return out, err
}

func (g *Gateway) CreateTable(ctx context.Context, source string, req schemaops.CreateTableRequest) (schemaops.Outcome, error) {
	return g.applySchema(ctx, source, fmt.Sprintf("%s.%s", req.Schema, req.TableName),
		func(ctx context.Context) (schemaops.Outcome, error) { return g.schema.CreateTable(ctx, req) })
}

func (g *Gateway) DropObject(ctx context.Context, source string, req schemaops.DropObjectRequest) (schemaops.Outcome, error) {
	return g.applySchema(ctx, source, fmt.Sprintf("%s.%s", req.Schema, req.ObjectName),
		func(ctx context.Context) (schemaops.Outcome, error) { return g.schema.DropObject(ctx, req) })
}

func (g *Gateway) CreateIndex(ctx context.Context, source string, req schemaops.CreateIndexRequest) (schemaops.Outcome, error) {
	return g.applySchema(ctx, source, fmt.Sprintf("%s.%s", req.Schema, req.TableName),
		func(ctx context.Context) (schemaops.Outcome, error) { return g.schema.CreateIndex(ctx, req) })
}

func (g *Gateway) CreateDatabase(ctx context.Context, source, name, owner string) (schemaops.Outcome, error) {
	return g.applySchema(ctx, source, name,
		func(ctx context.Context) (schemaops.Outcome, error) { return g.schema.CreateDatabase(ctx, name, owner) })
}

func (g *Gateway) DropDatabase(ctx context.Context, source, name string) (schemaops.Outcome, error) {
	return g.applySchema(ctx, source, name,
		func(ctx context.Context) (schemaops.Outcome, error) { return g.schema.DropDatabase(ctx, name) })
}

func (g *Gateway) Schemas(ctx context.Context) ([]string, error) {
	if g.catalog == nil {
		return nil, ErrUnavailable
	}
	return g.catalog.Schemas(ctx)
}

func (g *Gateway) Tables(ctx context.Context, schema string) ([]catalog.TableInfo, error) {
	if g.catalog == nil {
		return nil, ErrUnavailable
	}
	return g.catalog.Tables(ctx, schema)
}

func (g *Gateway) Columns(ctx context.Context, schema, table string) ([]catalog.ColumnInfo, error) {
	if g.catalog == nil {
		return nil, ErrUnavailable
	}
	return g.catalog.Columns(ctx, schema, table)
}
