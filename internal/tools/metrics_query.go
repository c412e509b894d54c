package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdesk/fncall/internal/security"
	"github.com/opsdesk/fncall/internal/service"
)

const (
	metricsQueryTimeout = 60 * time.Second
	metricsMaxRows      = 200
)

// MetricsQuerier is satisfied by *service.BigQueryService.
type MetricsQuerier interface {
	EstimateBytes(ctx context.Context, sql string) (int64, error)
	Query(ctx context.Context, sql string, timeout time.Duration, maxRows int) (*service.QueryResult, error)
}

// MetricsQuerySpec describes query_metrics.
var MetricsQuerySpec = Spec{
	Name:        "query_metrics",
	Description: "Run a read-only SQL SELECT against the operations metrics warehouse (BigQuery) to compare current readings with history.",
	Params: []Param{
		{Name: "sql", Type: TypeString, Description: "A single SELECT statement with a LIMIT clause", Required: true},
	},
}

// MetricsQuery returns the query_metrics callable. Statements are checked
// with validator and, when costs is set, dry-run against its scan limit
// before they run.
func MetricsQuery(q MetricsQuerier, validator *security.SQLValidator, costs *security.CostTracker) Func {
	return func(ctx context.Context, args Arguments) (string, error) {
		sql := args.String("sql")
		if err := validator.Validate(sql); err != nil {
			return "", err
		}
		if costs != nil {
			estimate, err := q.EstimateBytes(ctx, sql)
			if err != nil {
				return "", fmt.Errorf("estimate metrics query: %w", err)
			}
			if err := costs.Check(estimate); err != nil {
				return "", err
			}
		}

		res, err := q.Query(ctx, sql, metricsQueryTimeout, metricsMaxRows)
		if err != nil {
			return "", fmt.Errorf("query metrics: %w", err)
		}
		costs.Record(sql, res.BytesProcessed, time.Duration(res.ElapsedMs)*time.Millisecond)
		return marshalPayload(res)
	}
}
