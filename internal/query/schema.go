// Package query turns list-endpoint query strings into bounded,
// parameterized SQL and builds the paginated response envelope.
//
// Only fields declared in a Schema ever reach SQL; values are always
// bound as arguments.
package query

// Kind is the storage type of a schema field.  It decides how raw query
// values are converted and how predicates are rendered.
type Kind int

const (
	String Kind = iota
	Number
	Bool
	Time
	// List is a comma separated set column (e.g. careers); equality and
	// membership use FIND_IN_SET.
	List
)

// Field maps a public field name to its column.
type Field struct {
	Column string
	Kind   Kind
}

// Schema describes one listable resource.
type Schema struct {
	Table        string
	Fields       map[string]Field
	Order        []string // public field order used for "all fields"
	IDField      string   // always selected; defaults to "id"
	DefaultSort  string   // e.g. "-createdAt"
	DefaultLimit int
}

func (s Schema) idField() string {
	if s.IDField != "" {
		return s.IDField
	}
	return "id"
}

func (s Schema) field(name string) (Field, bool) {
	f, ok := s.Fields[name]
	return f, ok
}
