package query

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Parse extracts list parameters from URL query values.
// Filters use the PostgREST format field=op.value, either as top-level
// parameters or joined with & inside "filter".
func Parse(q url.Values, config Config) Params {
	params := Params{
		Page:       intOrDefault(q.Get("page"), 1),
		PageSize:   clamp(intOrDefault(q.Get("pageSize"), DefaultPageSize), 1, MaxPageSize),
		SortBy:     q.Get("sortBy"),
		SortOrder:  normalizeSortOrder(q.Get("order")),
		Conditions: []Condition{},
	}

	if filterStr := q.Get("filter"); filterStr != "" {
		params.Conditions = append(params.Conditions, parseFilterString(filterStr, config)...)
	}

	for _, field := range config.AllowedFilters {
		if v := q.Get(field); v != "" {
			params.Conditions = append(params.Conditions, parseCondition(field, v))
		}
	}
	return params
}

// parseFilterString parses "status=eq.completed&model=in.(a,b)".
func parseFilterString(filterStr string, config Config) []Condition {
	var conditions []Condition
	for _, part := range strings.Split(filterStr, "&") {
		field, value, ok := strings.Cut(part, "=")
		if !ok || !config.filters(field) {
			continue
		}
		conditions = append(conditions, parseCondition(field, value))
	}
	return conditions
}

// parseCondition parses a single PostgREST-style condition (op.value).
// Values without a known operator prefix are equality matches.
func parseCondition(field, value string) Condition {
	switch value {
	case "is.null":
		return Condition{Field: field, Operator: OpNull}
	case "not.is.null":
		return Condition{Field: field, Operator: OpNotNull}
	}

	opStr, rawValue, ok := strings.Cut(value, ".")
	op := Operator(opStr)
	if !ok || !op.IsValid() {
		return Condition{Field: field, Operator: OpEq, Value: value}
	}

	if strings.HasPrefix(rawValue, "(") && strings.HasSuffix(rawValue, ")") {
		return Condition{Field: field, Operator: op, Values: splitValues(rawValue[1 : len(rawValue)-1])}
	}
	return Condition{Field: field, Operator: op, Value: rawValue}
}

func splitValues(inner string) []string {
	var values []string
	for _, v := range strings.Split(inner, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func intOrDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func clamp(v, lower, upper int) int {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}

func normalizeSortOrder(s string) string {
	if strings.EqualFold(s, "desc") {
		return "desc"
	}
	return "asc"
}
