package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRelations(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "simple from",
			sql:  "SELECT * FROM users",
			want: []string{"users"},
		},
		{
			name: "from with alias",
			sql:  "SELECT u.id FROM users u WHERE u.active",
			want: []string{"users"},
		},
		{
			name: "from with as alias",
			sql:  "SELECT * FROM users AS u",
			want: []string{"users"},
		},
		{
			name: "comma join",
			sql:  "SELECT * FROM users, orders WHERE users.id = orders.user_id",
			want: []string{"users", "orders"},
		},
		{
			name: "explicit joins",
			sql: `SELECT * FROM users u
			      JOIN orders o ON o.user_id = u.id
			      LEFT JOIN payments p ON p.order_id = o.id`,
			want: []string{"users", "orders", "payments"},
		},
		{
			name: "qualified name uses tail",
			sql:  "SELECT * FROM lake.main.events",
			want: []string{"events"},
		},
		{
			name: "quoted identifier",
			sql:  `SELECT * FROM "daily events"`,
			want: []string{"daily events"},
		},
		{
			name: "subquery in from",
			sql:  "SELECT * FROM (SELECT id FROM orders) t",
			want: []string{"orders"},
		},
		{
			name: "scalar subquery in select list",
			sql:  "SELECT id, (SELECT count(*) FROM orders o WHERE o.user_id = u.id) FROM users u",
			want: []string{"orders", "users"},
		},
		{
			name: "cte names are not relations",
			sql: `WITH recent AS (SELECT * FROM events WHERE ts > now() - INTERVAL 1 DAY)
			      SELECT * FROM recent JOIN users ON users.id = recent.user_id`,
			want: []string{"events", "users"},
		},
		{
			name: "multiple ctes",
			sql: `WITH a AS (SELECT * FROM t1),
			           b AS (SELECT * FROM t2 JOIN a USING (id))
			      SELECT * FROM b`,
			want: []string{"t1", "t2"},
		},
		{
			name: "recursive cte with column list",
			sql: `WITH RECURSIVE walk(n) AS (
			          SELECT 1 UNION ALL SELECT n + 1 FROM walk WHERE n < 10
			      )
			      SELECT * FROM walk JOIN limits ON limits.n = walk.n`,
			want: []string{"limits"},
		},
		{
			name: "materialized cte",
			sql:  "WITH c AS MATERIALIZED (SELECT * FROM base) SELECT * FROM c",
			want: []string{"base"},
		},
		{
			name: "table function is not a relation",
			sql:  "SELECT * FROM read_csv_auto('data/*.csv') JOIN users ON true",
			want: []string{"users"},
		},
		{
			name: "extract from inside function",
			sql:  "SELECT EXTRACT(MONTH FROM created_at) FROM orders",
			want: []string{"orders"},
		},
		{
			name: "subquery inside function argument",
			sql:  "SELECT coalesce((SELECT max(ts) FROM heartbeats), now()) FROM workers",
			want: []string{"heartbeats", "workers"},
		},
		{
			name: "union",
			sql:  "SELECT id FROM a UNION ALL SELECT id FROM b",
			want: []string{"a", "b"},
		},
		{
			name: "parenthesized join",
			sql:  "SELECT * FROM (users u JOIN orders o ON o.user_id = u.id) WHERE u.active",
			want: []string{"users", "orders"},
		},
		{
			name: "duplicates collapse",
			sql:  "SELECT * FROM events e1 JOIN events e2 ON e1.id = e2.parent_id",
			want: []string{"events"},
		},
		{
			name: "case insensitive dedup keeps first spelling",
			sql:  "SELECT * FROM Events JOIN EVENTS ON true",
			want: []string{"Events"},
		},
		{
			name: "comments ignored",
			sql: `-- from ghosts
			      SELECT * /* FROM nowhere */ FROM users`,
			want: []string{"users"},
		},
		{
			name: "no relations",
			sql:  "SELECT 1 + 1",
			want: nil,
		},
		{
			name: "in list is not a from",
			sql:  "SELECT * FROM users WHERE id IN (1, 2, 3)",
			want: []string{"users"},
		},
		{
			name: "exists subquery",
			sql:  "SELECT * FROM users u WHERE EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.id)",
			want: []string{"users", "orders"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractRelations(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractRelationsErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"unbalanced open", "SELECT * FROM (SELECT id FROM orders"},
		{"stray close", "SELECT id FROM orders)"},
		{"cte missing as", "WITH c (SELECT 1) SELECT * FROM c"},
		{"dangling qualifier", "SELECT * FROM lake."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractRelations(tt.sql)
			require.Error(t, err)
		})
	}
}
