package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// SeedNames inserts names into a reference table with a unique name column,
// skipping names that already exist. Rows go through a temp table loaded with
// COPY and a single INSERT ... ON CONFLICT DO NOTHING. It returns the number
// of names that were new.
func SeedNames(ctx context.Context, pool Pool, table string, names []string) (int64, error) {
	rows := make([][]any, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		rows = append(rows, []any{n})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tempTable := "_seed_" + strings.ReplaceAll(table, ".", "_")
	var inserted int64

	err := WithTx(ctx, pool, func(tx pgx.Tx) error {
		createSQL := fmt.Sprintf("CREATE TEMP TABLE %s (name TEXT NOT NULL) ON COMMIT DROP",
			pgx.Identifier{tempTable}.Sanitize())
		if _, err := tx.Exec(ctx, createSQL); err != nil {
			return eris.Wrapf(err, "db: seed: create temp table for %s", table)
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, []string{"name"}, pgx.CopyFromRows(rows)); err != nil {
			return eris.Wrapf(err, "db: seed: COPY into temp table for %s", table)
		}

		insertSQL := fmt.Sprintf(
			"INSERT INTO %s (name) SELECT name FROM %s ON CONFLICT (name) DO NOTHING",
			sanitizeTable(table),
			pgx.Identifier{tempTable}.Sanitize(),
		)
		tag, err := tx.Exec(ctx, insertSQL)
		if err != nil {
			return eris.Wrapf(err, "db: seed: insert into %s", table)
		}
		inserted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// sanitizeTable handles schema-qualified table names like "public.cuisines".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}
