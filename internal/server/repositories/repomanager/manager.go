package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/termbind/internal/dbx"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/pairings"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Pairings(db dbx.DBTX, ns pairings.Namespace) pairings.Repository
	Credentials(db dbx.DBTX) credentials.Repository
}
