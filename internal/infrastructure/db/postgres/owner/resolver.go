package owner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"file-upload-api/internal/infrastructure/db/postgres"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Resolver checks owner rows by primary key. The owner of an alias names a
// table, optionally schema qualified.
type Resolver struct {
	db postgres.DBTX
}

func NewResolver(db postgres.DBTX) *Resolver {
	return &Resolver{db: db}
}

func (r *Resolver) OwnerExists(ctx context.Context, owner string, id int64) (bool, error) {
	sql, err := existsQuery(owner)
	if err != nil {
		return false, err
	}

	var ok bool
	if err = r.db.QueryRow(ctx, sql, id).Scan(&ok); err != nil {
		if postgres.IsUndefinedTable(err) {
			return false, fmt.Errorf("owner table %q does not exist: %w", owner, err)
		}
		return false, err
	}

	return ok, nil
}

func existsQuery(owner string) (string, error) {
	parts := strings.Split(owner, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("invalid owner %q", owner)
	}
	for _, p := range parts {
		if !identRe.MatchString(p) {
			return "", fmt.Errorf("invalid owner %q", owner)
		}
	}

	return "SELECT EXISTS (SELECT 1 FROM " + pgx.Identifier(parts).Sanitize() + " WHERE id = $1)", nil
}
