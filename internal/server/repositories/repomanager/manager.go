// Package repomanager vends repository implementations bound to a DBTX
// (a pool or a transaction) and runs schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/boilerbudget/internal/dbx"
	"github.com/dmitrijs2005/boilerbudget/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/boilerbudget/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/boilerbudget/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Profiles(db dbx.DBTX) profiles.Repository
}
