package service

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// BigQueryService runs read-only queries against the operations metrics
// warehouse.
type BigQueryService struct {
	client   *bigquery.Client
	location string
}

func NewBigQueryService(ctx context.Context, projectID, credentialsFile, location string) (*BigQueryService, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	if location != "" {
		client.Location = location
	}
	return &BigQueryService{client: client, location: location}, nil
}

// Close releases the client.
func (s *BigQueryService) Close() error {
	return s.client.Close()
}

// TestConnection runs a trivial query.
func (s *BigQueryService) TestConnection(ctx context.Context) error {
	job, err := s.client.Query("SELECT 1").Run(ctx)
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("job wait: %w", err)
	}
	return status.Err()
}

// EstimateBytes dry-runs sql and returns the bytes it would scan.
func (s *BigQueryService) EstimateBytes(ctx context.Context, sql string) (int64, error) {
	q := s.client.Query(sql)
	q.DryRun = true
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("dry run: %w", err)
	}
	status := job.LastStatus()
	if status == nil || status.Statistics == nil {
		return 0, nil
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("dry run: %w", err)
	}
	return status.Statistics.TotalBytesProcessed, nil
}

// QueryResult holds rows returned by a query.
type QueryResult struct {
	Columns        []string                 `json:"columns"`
	Rows           []map[string]interface{} `json:"rows"`
	Truncated      bool                     `json:"truncated"`
	BytesProcessed int64                    `json:"bytes_processed"`
	ElapsedMs      int64                    `json:"elapsed_ms"`
}

// Query executes sql and returns at most maxRows rows.
func (s *BigQueryService) Query(ctx context.Context, sql string, timeout time.Duration, maxRows int) (*QueryResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	job, err := s.client.Query(sql).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("job wait: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("job read: %w", err)
	}

	out := &QueryResult{Rows: []map[string]interface{}{}}
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if out.Columns == nil && it.Schema != nil {
			for _, f := range it.Schema {
				out.Columns = append(out.Columns, f.Name)
			}
		}
		if maxRows > 0 && len(out.Rows) >= maxRows {
			out.Truncated = true
			break
		}
		m := make(map[string]interface{}, len(row))
		for k, v := range row {
			m[k] = v
		}
		out.Rows = append(out.Rows, m)
	}

	if st := job.LastStatus(); st != nil && st.Statistics != nil {
		out.BytesProcessed = st.Statistics.TotalBytesProcessed
	}
	out.ElapsedMs = time.Since(start).Milliseconds()
	return out, nil
}
