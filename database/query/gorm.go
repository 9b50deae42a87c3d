package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Apply returns one page of T matching params. db carries the caller's
// scope, such as the model and the owning user.
func Apply[T any](db *gorm.DB, params Params, config Config) (*Result[T], error) {
	q := db.Session(&gorm.Session{})
	if where := Where(params.Conditions, config); len(where.Exprs) > 0 {
		q = q.Clauses(where)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("query: count: %w", err)
	}

	if order, ok := OrderBy(params.SortBy, params.SortOrder, config); ok {
		q = q.Order(order)
	}
	data := make([]T, 0, params.PageSize)
	err := q.Offset((params.Page - 1) * params.PageSize).Limit(params.PageSize).Find(&data).Error
	if err != nil {
		return nil, fmt.Errorf("query: find: %w", err)
	}
	return &Result[T]{Data: data, Pagination: newPagination(params.Page, params.PageSize, total)}, nil
}

// Where builds the WHERE clause for conds, dropping fields config does
// not allow.
func Where(conds []Condition, config Config) clause.Where {
	var w clause.Where
	for _, cond := range conds {
		if !config.filters(cond.Field) {
			continue
		}
		if expr := expression(column(config.ResolveField(cond.Field)), cond); expr != nil {
			w.Exprs = append(w.Exprs, expr)
		}
	}
	return w
}

func column(name string) clause.Column {
	if table, col, ok := strings.Cut(name, "."); ok {
		return clause.Column{Table: table, Name: col}
	}
	return clause.Column{Name: name}
}

func anys(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func expression(col clause.Column, cond Condition) clause.Expression {
	switch cond.Operator {
	case OpEq:
		if len(cond.Values) > 0 {
			return clause.IN{Column: col, Values: anys(cond.Values)}
		}
		return clause.Eq{Column: col, Value: cond.Value}
	case OpNeq:
		if len(cond.Values) > 0 {
			return clause.Not(clause.IN{Column: col, Values: anys(cond.Values)})
		}
		return clause.Neq{Column: col, Value: cond.Value}
	case OpGt:
		return clause.Gt{Column: col, Value: cond.Value}
	case OpGte:
		return clause.Gte{Column: col, Value: cond.Value}
	case OpLt:
		return clause.Lt{Column: col, Value: cond.Value}
	case OpLte:
		return clause.Lte{Column: col, Value: cond.Value}
	case OpIn, OpNin:
		values := cond.list()
		if len(values) == 0 {
			return nil
		}
		in := clause.IN{Column: col, Values: anys(values)}
		if cond.Operator == OpNin {
			return clause.Not(in)
		}
		return in
	case OpNull:
		return clause.Eq{Column: col, Value: nil}
	case OpNotNull:
		return clause.Neq{Column: col, Value: nil}
	}
	return nil
}

// OrderBy resolves the requested sort, falling back to config.DefaultSort.
// ok is false when neither names a column.
func OrderBy(sortBy, order string, config Config) (clause.OrderByColumn, bool) {
	if sortBy != "" && config.sorts(sortBy) {
		return clause.OrderByColumn{Column: column(config.ResolveField(sortBy)), Desc: order == "desc"}, true
	}
	fields := strings.Fields(config.DefaultSort)
	if len(fields) == 0 {
		return clause.OrderByColumn{}, false
	}
	desc := len(fields) > 1 && strings.EqualFold(fields[1], "desc")
	return clause.OrderByColumn{Column: column(config.ResolveField(fields[0])), Desc: desc}, true
}
