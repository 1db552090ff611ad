package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/recordkeeper/internal/dbx"
	"github.com/dmitrijs2005/recordkeeper/internal/server/repositories/operations"
	"github.com/dmitrijs2005/recordkeeper/internal/server/repositories/records"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
	Operations(db dbx.DBTX) operations.Repository
}
