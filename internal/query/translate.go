package query

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Pagination bounds.
const (
	DefaultLimit = 25
	MaxLimit     = 100
)

const defaultSort = "-createdAt"

// Op is a comparison operator accepted as a `field[op]` suffix.
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

var ops = map[Op]bool{OpEq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true, OpIn: true}

// reserved keys never become filter predicates.
var reserved = map[string]bool{"select": true, "sort": true, "page": true, "limit": true}

// Predicate is one filter condition on a schema field.  Values holds one
// converted value, or several for OpIn.
type Predicate struct {
	Field  string
	Column string
	Kind   Kind
	Op     Op
	Values []any
}

// SortKey orders results by a schema field.
type SortKey struct {
	Field  string
	Column string
	Desc   bool
}

// Query is the translated form of a list request.
type Query struct {
	Filter []Predicate
	Sort   []SortKey
	Select []string // public field names; nil selects every schema field
	Page   int
	Limit  int
}

// Offset is the index of the first row of the page.
func (q Query) Offset() int { return (q.Page - 1) * q.Limit }

// Where appends a predicate built by the caller (e.g. a route parameter).
func (q Query) Where(p Predicate) Query {
	q.Filter = append(append([]Predicate(nil), q.Filter...), p)
	return q
}

// Translate maps raw query parameters onto schema.  It never fails:
// unknown fields, unknown operators and values that do not parse are
// dropped, and bad pagination falls back to the defaults.  When a key is
// repeated the last value wins.
func Translate(params url.Values, schema Schema) Query {
	q := Query{
		Select: parseSelect(last(params, "select"), schema),
		Sort:   parseSort(last(params, "sort"), schema),
	}
	q.Page, q.Limit = parsePage(last(params, "page"), last(params, "limit"), schema.DefaultLimit)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic predicate order

	for _, key := range keys {
		name, op := splitKey(key)
		if reserved[name] {
			continue
		}
		f, ok := schema.field(name)
		if !ok || !ops[op] {
			continue
		}
		if p, ok := buildPredicate(name, f, op, last(params, key)); ok {
			q.Filter = append(q.Filter, p)
		}
	}
	return q
}

func last(params url.Values, key string) string {
	vs := params[key]
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[len(vs)-1])
}

// splitKey turns "averageCost[gte]" into ("averageCost", OpGte).  A key
// without a suffix is an equality test.
func splitKey(key string) (string, Op) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	return key[:open], Op(strings.ToLower(key[open+1 : len(key)-1]))
}

func buildPredicate(name string, f Field, op Op, raw string) (Predicate, bool) {
	if raw == "" {
		return Predicate{}, false
	}
	if f.Kind == List || f.Kind == Bool {
		// ordering makes no sense on sets and booleans
		if op != OpEq && op != OpIn {
			return Predicate{}, false
		}
	}
	p := Predicate{Field: name, Column: f.Column, Kind: f.Kind, Op: op}
	if op == OpIn {
		for _, part := range strings.Split(raw, ",") {
			if v, ok := convert(f.Kind, strings.TrimSpace(part)); ok {
				p.Values = append(p.Values, v)
			}
		}
		if len(p.Values) == 0 {
			return Predicate{}, false
		}
		return p, true
	}
	v, ok := convert(f.Kind, raw)
	if !ok {
		return Predicate{}, false
	}
	p.Values = []any{v}
	return p, true
}

func convert(k Kind, raw string) (any, bool) {
	if raw == "" {
		return nil, false
	}
	switch k {
	case Number:
		n, err := strconv.ParseFloat(raw, 64)
		return n, err == nil
	case Bool:
		b, err := strconv.ParseBool(raw)
		return b, err == nil
	case Time:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), true
			}
		}
		return nil, false
	default:
		return raw, true
	}
}

func parseSelect(raw string, schema Schema) []string {
	if raw == "" {
		return nil
	}
	id := schema.idField()
	out := []string{id}
	seen := map[string]bool{id: true}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if _, ok := schema.field(name); !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 1 {
		// nothing valid was asked for
		return nil
	}
	return out
}

func parseSort(raw string, schema Schema) []SortKey {
	keys := sortKeys(raw, schema)
	if len(keys) == 0 {
		def := schema.DefaultSort
		if def == "" {
			def = defaultSort
		}
		keys = sortKeys(def, schema)
	}
	return keys
}

func sortKeys(raw string, schema Schema) []SortKey {
	var out []SortKey
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimLeft(part, "-+")
		f, ok := schema.field(name)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, SortKey{Field: name, Column: f.Column, Desc: desc})
	}
	return out
}

func parsePage(rawPage, rawLimit string, schemaLimit int) (int, int) {
	def := DefaultLimit
	if schemaLimit > 0 {
		def = schemaLimit
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(rawLimit)
	if err != nil || limit < 1 {
		limit = def
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// keep page*limit representable so the offset never wraps negative
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}
