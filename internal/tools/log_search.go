package tools

import (
	"context"
	"fmt"

	"github.com/opsdesk/fncall/internal/service"
)

const maxLogHits = 100

// LogSearcher is satisfied by *service.ElasticsearchService.
type LogSearcher interface {
	SearchLogs(ctx context.Context, q service.LogQuery) (*service.LogSearchResult, error)
}

// LogSearchSpec describes search_logs.
var LogSearchSpec = Spec{
	Name:        "search_logs",
	Description: "Search application and database logs in Elasticsearch. Use it to find errors or events around an alert.",
	Params: []Param{
		{Name: "index", Type: TypeString, Description: "Index pattern to search, e.g. 'logs-db-*'", Required: true},
		{Name: "query", Type: TypeString, Description: "Lucene query string, e.g. 'level:error AND service:orders'", Required: true},
		{Name: "since", Type: TypeString, Description: "Relative time window such as '15m', '1h' or '24h'"},
		{Name: "size", Type: TypeInteger, Description: "Number of documents to return (default 20, max 100)"},
	},
}

type logSearchArgs struct {
	Index string `arg:"index"`
	Query string `arg:"query"`
	Since string `arg:"since"`
	Size  int    `arg:"size"`
}

// LogSearch returns the search_logs callable backed by searcher.
func LogSearch(searcher LogSearcher) Func {
	return func(ctx context.Context, args Arguments) (string, error) {
		var in logSearchArgs
		if err := args.Decode(&in); err != nil {
			return "", err
		}
		if in.Size <= 0 {
			in.Size = 20
		}
		if in.Size > maxLogHits {
			in.Size = maxLogHits
		}

		res, err := searcher.SearchLogs(ctx, service.LogQuery{
			Index: in.Index,
			Query: in.Query,
			Since: in.Since,
			Size:  in.Size,
		})
		if err != nil {
			return "", fmt.Errorf("search logs: %w", err)
		}
		return marshalPayload(res)
	}
}
