package query_test

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kbukum/scribegate/database/query"
	"github.com/kbukum/scribegate/database/testutil"
)

var jobsConfig = query.Config{
	AllowedSortFields: []string{"created_at", "status"},
	AllowedFilters:    []string{"status", "model"},
	FieldAliases:      map[string]string{"created_at": "jobs.created_at"},
	DefaultSort:       "created_at DESC",
}

func TestParse(t *testing.T) {
	q := url.Values{
		"page":     {"2"},
		"pageSize": {"500"},
		"sortBy":   {"status"},
		"order":    {"DESC"},
		"status":   {"in.(queued,processing)"},
		"filter":   {"model=eq.large-v2&user_id=eq.someone"},
	}

	params := query.Parse(q, jobsConfig)

	assert.Equal(t, 2, params.Page)
	assert.Equal(t, query.MaxPageSize, params.PageSize)
	assert.Equal(t, "status", params.SortBy)
	assert.Equal(t, "desc", params.SortOrder)
	assert.Equal(t, []query.Condition{
		{Field: "model", Operator: query.OpEq, Value: "large-v2"},
		{Field: "status", Operator: query.OpIn, Values: []string{"queued", "processing"}},
	}, params.Conditions)
}

func TestParse_Defaults(t *testing.T) {
	params := query.Parse(url.Values{"page": {"-3"}, "pageSize": {"abc"}}, jobsConfig)

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, query.DefaultPageSize, params.PageSize)
	assert.Equal(t, "asc", params.SortOrder)
	assert.Empty(t, params.Conditions)
}

func TestParse_ConditionForms(t *testing.T) {
	tests := []struct {
		value string
		want  query.Condition
	}{
		{"completed", query.Condition{Field: "status", Operator: query.OpEq, Value: "completed"}},
		{"neq.failed", query.Condition{Field: "status", Operator: query.OpNeq, Value: "failed"}},
		{"is.null", query.Condition{Field: "status", Operator: query.OpNull}},
		{"not.is.null", query.Condition{Field: "status", Operator: query.OpNotNull}},
		{"bogus.value", query.Condition{Field: "status", Operator: query.OpEq, Value: "bogus.value"}},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			params := query.Parse(url.Values{"status": {tt.value}}, jobsConfig)
			require.Len(t, params.Conditions, 1)
			assert.Equal(t, tt.want, params.Conditions[0])
		})
	}
}

type jobRow struct {
	ID     string
	Status string
	Model  string
}

func (jobRow) TableName() string { return "jobs" }

func TestApply(t *testing.T) {
	db := testutil.NewDB(t).GormDB
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	statuses := []string{"queued", "completed", "completed", "failed", "completed"}
	rows := make([]testutil.Row, len(statuses))
	for i, status := range statuses {
		rows[i] = testutil.Row{
			"id": fmt.Sprintf("job-%d", i), "user_id": "u1", "status": status, "model": "large-v2",
			"created_at": base.Add(time.Duration(i) * time.Minute), "updated_at": base,
		}
	}
	testutil.Seed(t, db, "jobs", rows...)

	params := query.Parse(url.Values{"status": {"completed"}, "pageSize": {"2"}}, jobsConfig)
	res, err := query.Apply[jobRow](db.Model(&jobRow{}), params, jobsConfig)
	require.NoError(t, err)

	assert.Equal(t, query.Pagination{Page: 1, PageSize: 2, Total: 3, TotalPages: 2}, res.Pagination)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "job-4", res.Data[0].ID)
	assert.Equal(t, "job-2", res.Data[1].ID)

	params.Page = 2
	res, err = query.Apply[jobRow](db.Model(&jobRow{}), params, jobsConfig)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "job-1", res.Data[0].ID)
}

func TestApply_IgnoresUnlistedFields(t *testing.T) {
	db := testutil.NewDB(t).GormDB
	testutil.Seed(t, db, "jobs", testutil.Row{
		"id": "j1", "user_id": "u1", "status": "queued", "created_at": time.Now(), "updated_at": time.Now(),
	})

	params := query.Params{
		Page: 1, PageSize: 10, SortBy: "user_id; DROP TABLE jobs",
		Conditions: []query.Condition{{Field: "1=1 OR user_id", Operator: query.OpEq, Value: "x"}},
	}
	res, err := query.Apply[jobRow](db.Model(&jobRow{}), params, jobsConfig)
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, 1, res.Pagination.TotalPages)
}

func TestApply_EmptyResult(t *testing.T) {
	db := testutil.NewDB(t).GormDB

	res, err := query.Apply[jobRow](db.Model(&jobRow{}), query.Params{Page: 1, PageSize: 5}, jobsConfig)
	require.NoError(t, err)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.Equal(t, query.Pagination{Page: 1, PageSize: 5, Total: 0, TotalPages: 1}, res.Pagination)
}

func TestWhere_RendersQuotedColumns(t *testing.T) {
	db := testutil.NewDB(t).GormDB
	tests := []struct {
		cond query.Condition
		want string
	}{
		{query.Condition{Field: "status", Operator: query.OpEq, Value: "completed"}, "WHERE `status` = ?"},
		{query.Condition{Field: "status", Operator: query.OpNin, Value: "failed,queued"}, "WHERE `status` NOT IN (?,?)"},
		{query.Condition{Field: "model", Operator: query.OpNull}, "WHERE `model` IS NULL"},
		{query.Condition{Field: "model", Operator: query.OpNotNull}, "WHERE `model` IS NOT NULL"},
		{query.Condition{Field: "status", Operator: query.OpIn}, "SELECT * FROM `jobs`"},
		{query.Condition{Field: "user_id", Operator: query.OpEq, Value: "x"}, "SELECT * FROM `jobs`"},
	}
	for _, tt := range tests {
		t.Run(string(tt.cond.Operator)+" "+tt.cond.Field, func(t *testing.T) {
			var rows []jobRow
			stmt := db.Session(&gorm.Session{DryRun: true}).
				Clauses(query.Where([]query.Condition{tt.cond}, jobsConfig)).
				Find(&rows).Statement
			assert.True(t, strings.HasSuffix(stmt.SQL.String(), tt.want), stmt.SQL.String())
		})
	}
}

func TestOrderBy(t *testing.T) {
	order, ok := query.OrderBy("created_at", "desc", jobsConfig)
	require.True(t, ok)
	assert.Equal(t, "jobs", order.Column.Table)
	assert.Equal(t, "created_at", order.Column.Name)
	assert.True(t, order.Desc)

	order, ok = query.OrderBy("user_id", "asc", jobsConfig)
	require.True(t, ok)
	assert.Equal(t, "created_at", order.Column.Name)
	assert.True(t, order.Desc)

	_, ok = query.OrderBy("", "", query.Config{})
	assert.False(t, ok)
}
