// Package query turns list parameters (page, pageSize, sortBy, order and
// field=op.value filters) into GORM clauses. Filters follow PostgREST.
package query

import "slices"

// Operator is the op in field=op.value.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIn      Operator = "in"
	OpNin     Operator = "nin"
	OpNull    Operator = "null"
	OpNotNull Operator = "notNull"
)

var operators = []Operator{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn, OpNin, OpNull, OpNotNull}

func (o Operator) IsValid() bool { return slices.Contains(operators, o) }

// Condition is one parsed filter. Values holds a parenthesised list.
type Condition struct {
	Field    string
	Operator Operator
	Value    string
	Values   []string
}

// list returns the values an in/nin or list equality applies to.
func (c Condition) list() []string {
	if len(c.Values) > 0 || c.Value == "" {
		return c.Values
	}
	return splitValues(c.Value)
}

type Params struct {
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
	Conditions []Condition
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func newPagination(page, size int, total int64) Pagination {
	pages := max(1, (int(total)+size-1)/size)
	return Pagination{Page: page, PageSize: size, Total: int(total), TotalPages: pages}
}

// Result is one page of rows.
type Result[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Config says which fields of a listing may be filtered and sorted on.
// Nothing else reaches SQL. FieldAliases maps a public name to its column,
// optionally table-qualified.
type Config struct {
	AllowedSortFields []string
	AllowedFilters    []string
	FieldAliases      map[string]string
	// DefaultSort is "column" or "column DESC".
	DefaultSort string
}

func (c Config) ResolveField(field string) string {
	if col, ok := c.FieldAliases[field]; ok {
		return col
	}
	return field
}

func (c Config) filters(field string) bool { return slices.Contains(c.AllowedFilters, field) }

func (c Config) sorts(field string) bool { return slices.Contains(c.AllowedSortFields, field) }
