// Package schemaops builds and runs structural statements (tables, indexes,
// databases). Every identifier is validated and quoted before any SQL text
// is assembled.
package schemaops

import (
	"context"
	"fmt"

	"github.com/vaibhaw-/QueryGate/internal/querygate/db"
	"github.com/vaibhaw-/QueryGate/internal/querygate/engine"
	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// Execer runs a statement that returns no rows. *engine.Engine satisfies it.
type Execer interface {
	Exec(ctx context.Context, stmt string) (*engine.Result, error)
}

// Outcome reports an applied statement.
type Outcome struct {
	Statement string `json:"statement"`
	Message   string `json:"message"`
}

type Service struct {
	exec    Execer
	dialect db.Dialect
}

func New(exec Execer, dialect db.Dialect) *Service {
	return &Service{exec: exec, dialect: dialect}
}

func (s *Service) Dialect() db.Dialect { return s.dialect }

func (s *Service) run(ctx context.Context, stmt, message string) (Outcome, error) {
	if _, err := s.exec.Exec(ctx, stmt); err != nil {
		logger.L().Warnw("schemaops: statement failed", "statement", stmt, "error", err)
		return Outcome{Statement: stmt}, err
	}
	logger.L().Infow("schemaops: statement applied", "statement", stmt)
	return Outcome{Statement: stmt, Message: message}, nil
}

func (s *Service) CreateTable(ctx context.Context, req CreateTableRequest) (Outcome, error) {
	stmt, err := BuildCreateTable(s.dialect, req)
	if err != nil {
		return Outcome{}, err
	}
	return s.run(ctx, stmt, fmt.Sprintf("Table %s.%s created successfully", req.Schema, req.TableName))
}

func (s *Service) DropObject(ctx context.Context, req DropObjectRequest) (Outcome, error) {
	stmt, err := BuildDropObject(s.dialect, req)
	if err != nil {
		return Outcome{}, err
	}
	return s.run(ctx, stmt, fmt.Sprintf("%s %s.%s dropped successfully", req.ObjectType, req.Schema, req.ObjectName))
}

func (s *Service) CreateIndex(ctx context.Context, req CreateIndexRequest) (Outcome, error) {
	stmt, err := BuildCreateIndex(s.dialect, req)
	if err != nil {
		return Outcome{}, err
	}
	return s.run(ctx, stmt, fmt.Sprintf("Index %s created successfully", req.IndexName))
}

func (s *Service) CreateDatabase(ctx context.Context, name, owner string) (Outcome, error) {
	stmt, err := BuildCreateDatabase(s.dialect, name, owner)
	if err != nil {
		return Outcome{}, err
	}
	return s.run(ctx, stmt, fmt.Sprintf("Database %s created successfully", name))
}

func (s *Service) DropDatabase(ctx context.Context, name string) (Outcome, error) {
	stmt, err := BuildDropDatabase(s.dialect, name)
	if err != nil {
		return Outcome{}, err
	}
	return s.run(ctx, stmt, fmt.Sprintf("Database %s dropped successfully", name))
}
