package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/bootcamp-directory/internal/query"
)

// list executes a translated query against schema and returns one page of
// documents plus the total number of matching rows.
func list(ctx context.Context, db *sql.DB, schema query.Schema, q query.Query) ([]query.Document, int64, error) {
	st := q.Build(schema)

	var total int64
	if err := db.QueryRowContext(ctx, st.CountSQL, st.CountArg...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", schema.Table, err)
	}

	rows, err := db.QueryContext(ctx, st.SelectSQL, st.SelectArg...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", schema.Table, err)
	}
	defer rows.Close()

	out := make([]query.Document, 0, q.Limit)
	for rows.Next() {
		vals := make([]any, len(st.Fields))
		ptrs := make([]any, len(st.Fields))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", schema.Table, err)
		}
		doc := make(query.Document, len(st.Fields))
		for i, name := range st.Fields {
			doc[name] = normalize(schema.Fields[name].Kind, vals[i])
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// normalize converts a raw driver value into the JSON-friendly Go value
// for kind.  The MySQL driver returns []byte for text and DECIMAL
// columns, int64 for integers (including TINYINT(1) booleans) and
// time.Time for DATETIME when parseTime is on.
func normalize(kind query.Kind, v any) any {
	if v == nil {
		return nil
	}
	b, isBytes := v.([]byte)
	switch kind {
	case query.Number:
		if isBytes {
			if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
				return n
			}
			if f, err := strconv.ParseFloat(string(b), 64); err == nil {
				return f
			}
			return string(b)
		}
		return v
	case query.Bool:
		switch t := v.(type) {
		case int64:
			return t != 0
		case bool:
			return t
		}
		if isBytes {
			return string(b) == "1"
		}
		return v
	case query.List:
		var s string
		if isBytes {
			s = string(b)
		} else if str, ok := v.(string); ok {
			s = str
		}
		if s == "" {
			return []string{}
		}
		return strings.Split(s, ",")
	case query.Time:
		if isBytes {
			if t, err := time.Parse("2006-01-02 15:04:05", string(b)); err == nil {
				return t.UTC()
			}
			return string(b)
		}
		return v
	default:
		if isBytes {
			return string(b)
		}
		return v
	}
}

// docIDs collects the uint64 values stored under field in docs.
func docIDs(docs []query.Document, field string) []uint64 {
	seen := map[uint64]bool{}
	var ids []uint64
	for _, d := range docs {
		id, ok := toUint(d[field])
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func toUint(v any) (uint64, bool) {
	switch t := v.(type) {
	case int64:
		return uint64(t), t > 0
	case uint64:
		return t, t > 0
	case float64:
		return uint64(t), t > 0
	}
	return 0, false
}

// inClause returns "?, ?, ?" and the matching argument slice.
func inClause(ids []uint64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

// execOne runs a single-row write whose last argument is the row id and
// reports ErrNotFound when that row does not exist.  MySQL counts only
// changed rows, so an UPDATE that writes identical values is confirmed
// with a lookup.
func execOne(ctx context.Context, db *sql.DB, table, stmt string, args ...any) error {
	res, err := db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id=?", args[len(args)-1]).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
