package query

import (
	"strings"
)

// Statement is a rendered list query.  Fields lists the public names of
// the selected columns in SELECT order so rows can be mapped back.
type Statement struct {
	Fields    []string
	SelectSQL string
	SelectArg []any
	CountSQL  string
	CountArg  []any
}

var sqlOps = map[Op]string{OpEq: "=", OpGt: ">", OpGte: ">=", OpLt: "<", OpLte: "<="}

// Build renders q against schema as MySQL.  Every identifier comes from
// the schema; every value is a bound argument.
func (q Query) Build(schema Schema) Statement {
	fields := q.Select
	if len(fields) == 0 {
		fields = schema.Order
	}
	cols := make([]string, 0, len(fields))
	names := make([]string, 0, len(fields))
	for _, name := range fields {
		f, ok := schema.field(name)
		if !ok {
			continue
		}
		cols = append(cols, f.Column)
		names = append(names, name)
	}

	where, args := q.where()

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(schema.Table)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(q.orderBy(schema))
	b.WriteString(" LIMIT ? OFFSET ?")

	count := "SELECT COUNT(*) FROM " + schema.Table
	if where != "" {
		count += " WHERE " + where
	}

	selArgs := append(append([]any{}, args...), q.Limit, q.Offset())
	return Statement{
		Fields:    names,
		SelectSQL: b.String(),
		SelectArg: selArgs,
		CountSQL:  count,
		CountArg:  args,
	}
}

func (q Query) where() (string, []any) {
	var conds []string
	var args []any
	for _, p := range q.Filter {
		cond, a := p.sql()
		if cond == "" {
			continue
		}
		conds = append(conds, cond)
		args = append(args, a...)
	}
	return strings.Join(conds, " AND "), args
}

func (p Predicate) sql() (string, []any) {
	if len(p.Values) == 0 {
		return "", nil
	}
	if p.Kind == List {
		parts := make([]string, len(p.Values))
		for i := range p.Values {
			parts[i] = "FIND_IN_SET(?, " + p.Column + ") > 0"
		}
		if len(parts) == 1 {
			return parts[0], p.Values
		}
		return "(" + strings.Join(parts, " OR ") + ")", p.Values
	}
	if p.Op == OpIn {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(p.Values)), ", ")
		return p.Column + " IN (" + marks + ")", p.Values
	}
	op, ok := sqlOps[p.Op]
	if !ok {
		return "", nil
	}
	return p.Column + " " + op + " ?", p.Values[:1]
}

// orderBy renders the sort keys, adding the id column as a tie-breaker
// so paging is stable.
func (q Query) orderBy(schema Schema) string {
	parts := make([]string, 0, len(q.Sort)+1)
	idCol := schema.idField()
	if f, ok := schema.field(idCol); ok {
		idCol = f.Column
	}
	hasID := false
	lastDesc := false
	for _, k := range q.Sort {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		lastDesc = k.Desc
		if k.Column == idCol {
			hasID = true
		}
		parts = append(parts, k.Column+" "+dir)
	}
	if !hasID {
		dir := "ASC"
		if lastDesc {
			dir = "DESC"
		}
		parts = append(parts, idCol+" "+dir)
	}
	return strings.Join(parts, ", ")
}
