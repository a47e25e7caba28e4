package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	Table: "bootcamps",
	Fields: map[string]Field{
		"id":          {Column: "id", Kind: Number},
		"name":        {Column: "name", Kind: String},
		"averageCost": {Column: "average_cost", Kind: Number},
		"housing":     {Column: "housing", Kind: Bool},
		"careers":     {Column: "careers", Kind: List},
		"createdAt":   {Column: "created_at", Kind: Time},
	},
	Order: []string{"id", "name", "averageCost", "housing", "careers", "createdAt"},
}

func TestTranslate_MalformedPaginationFallsBackToDefaults(t *testing.T) {
	q := Translate(url.Values{"limit": {"abc"}, "page": {"-1"}}, testSchema)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Equal(t, 0, q.Offset())
	assert.Empty(t, q.Filter)
}

func TestTranslate_SchemaDefaultLimit(t *testing.T) {
	s := testSchema
	s.DefaultLimit = 10
	q := Translate(url.Values{"limit": {"0"}}, s)
	assert.Equal(t, 10, q.Limit)
}

func TestTranslate_LimitIsCapped(t *testing.T) {
	q := Translate(url.Values{"limit": {"5000"}, "page": {"3"}}, testSchema)
	assert.Equal(t, MaxLimit, q.Limit)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 200, q.Offset())
}

func TestTranslate_GteOperator(t *testing.T) {
	q := Translate(url.Values{"averageCost[gte]": {"1000"}}, testSchema)

	require.Len(t, q.Filter, 1)
	p := q.Filter[0]
	assert.Equal(t, "averageCost", p.Field)
	assert.Equal(t, OpGte, p.Op)
	assert.Equal(t, []any{1000.0}, p.Values)

	st := q.Build(testSchema)
	assert.Contains(t, st.SelectSQL, "WHERE average_cost >= ?")
	assert.Equal(t, "SELECT COUNT(*) FROM bootcamps WHERE average_cost >= ?", st.CountSQL)
	assert.Equal(t, []any{1000.0}, st.CountArg)
}

func TestTranslate_BareValueIsEquality(t *testing.T) {
	q := Translate(url.Values{"housing": {"true"}, "name": {"Devworks"}}, testSchema)

	require.Len(t, q.Filter, 2)
	// keys are processed in sorted order
	assert.Equal(t, "housing", q.Filter[0].Field)
	assert.Equal(t, OpEq, q.Filter[0].Op)
	assert.Equal(t, []any{true}, q.Filter[0].Values)
	assert.Equal(t, "name", q.Filter[1].Field)
	assert.Equal(t, []any{"Devworks"}, q.Filter[1].Values)
}

func TestTranslate_InOperator(t *testing.T) {
	q := Translate(url.Values{"averageCost[in]": {"1000, 2000,x"}}, testSchema)
	require.Len(t, q.Filter, 1)
	assert.Equal(t, []any{1000.0, 2000.0}, q.Filter[0].Values)

	st := q.Build(testSchema)
	assert.Contains(t, st.SelectSQL, "average_cost IN (?, ?)")
}

func TestTranslate_ListColumnUsesFindInSet(t *testing.T) {
	q := Translate(url.Values{"careers[in]": {"Business,UI/UX"}}, testSchema)
	st := q.Build(testSchema)
	assert.Contains(t, st.SelectSQL, "(FIND_IN_SET(?, careers) > 0 OR FIND_IN_SET(?, careers) > 0)")
	assert.Equal(t, []any{"Business", "UI/UX"}, st.CountArg)
}

func TestTranslate_DropsWhatItCannotUse(t *testing.T) {
	q := Translate(url.Values{
		"password":          {"x"},      // not in schema
		"averageCost[like]": {"1"},      // unknown operator
		"averageCost[lt]":   {"cheap"},  // not a number
		"careers[gt]":       {"Other"},  // ordering on a set
		"name; DROP TABLE":  {"x"},      // not a field name
		"housing":           {"maybe"},  // not a bool
		"createdAt[gt]":     {"yesterday"},
	}, testSchema)
	assert.Empty(t, q.Filter)
}

func TestTranslate_ReservedKeysAreNotFilters(t *testing.T) {
	q := Translate(url.Values{"select": {"name"}, "sort": {"name"}, "page": {"2"}, "limit": {"5"}}, testSchema)
	assert.Empty(t, q.Filter)
	assert.Equal(t, []string{"id", "name"}, q.Select)
	assert.Equal(t, []SortKey{{Field: "name", Column: "name"}}, q.Sort)
}

func TestTranslate_DefaultSortIsNewestFirst(t *testing.T) {
	q := Translate(url.Values{}, testSchema)
	require.Len(t, q.Sort, 1)
	assert.Equal(t, SortKey{Field: "createdAt", Column: "created_at", Desc: true}, q.Sort[0])

	st := q.Build(testSchema)
	assert.Contains(t, st.SelectSQL, "ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
}

func TestTranslate_SortWithDescendingMarker(t *testing.T) {
	q := Translate(url.Values{"sort": {"-averageCost,name,bogus"}}, testSchema)
	assert.Equal(t, []SortKey{
		{Field: "averageCost", Column: "average_cost", Desc: true},
		{Field: "name", Column: "name"},
	}, q.Sort)
	assert.Contains(t, q.Build(testSchema).SelectSQL, "ORDER BY average_cost DESC, name ASC, id ASC")
}

func TestTranslate_SelectProjection(t *testing.T) {
	q := Translate(url.Values{"select": {"name,averageCost,unknown"}}, testSchema)
	st := q.Build(testSchema)

	assert.Equal(t, []string{"id", "name", "averageCost"}, st.Fields)
	assert.True(t, len(st.SelectSQL) > 0)
	assert.Contains(t, st.SelectSQL, "SELECT id, name, average_cost FROM bootcamps")
}

func TestTranslate_SelectNothingValidMeansAllFields(t *testing.T) {
	q := Translate(url.Values{"select": {"nope"}}, testSchema)
	assert.Nil(t, q.Select)
	assert.Equal(t, testSchema.Order, q.Build(testSchema).Fields)
}

func TestTranslate_LastRepeatedValueWins(t *testing.T) {
	q := Translate(url.Values{"name": {"first", "second"}}, testSchema)
	require.Len(t, q.Filter, 1)
	assert.Equal(t, []any{"second"}, q.Filter[0].Values)
}

func TestBuild_WindowArguments(t *testing.T) {
	q := Translate(url.Values{"page": {"2"}, "limit": {"10"}, "averageCost[lt]": {"5000"}}, testSchema)
	st := q.Build(testSchema)
	assert.Equal(t, []any{5000.0, 10, 10}, st.SelectArg)
}

func TestWhereAppendsWithoutMutating(t *testing.T) {
	base := Translate(url.Values{"name": {"a"}}, testSchema)
	scoped := base.Where(Predicate{Field: "id", Column: "id", Kind: Number, Op: OpEq, Values: []any{uint64(3)}})
	assert.Len(t, base.Filter, 1)
	assert.Len(t, scoped.Filter, 2)
}

func TestTranslate_HugePageDoesNotOverflow(t *testing.T) {
	q := Translate(url.Values{"page": {"368934881474191034"}, "limit": {"25"}}, testSchema)

	assert.Equal(t, 25, q.Limit)
	assert.Positive(t, q.Offset())
	st := q.Build(testSchema)
	require.Len(t, st.SelectArg, 2)
	assert.GreaterOrEqual(t, st.SelectArg[1].(int), 0)

	p := NewPagination(q, 10)
	assert.True(t, p.HasPrevPage)
	assert.False(t, p.HasNextPage)
}

func TestTranslate_PageBeyondIntIsClamped(t *testing.T) {
	// does not parse as int, falls back to page 1
	q := Translate(url.Values{"page": {"99999999999999999999999"}}, testSchema)
	assert.Equal(t, 1, q.Page)
}
