package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchConfig holds connection settings for the log cluster.
type ElasticsearchConfig struct {
	Addresses       []string
	Username        string
	Password        string
	VerifyCerts     bool
	MaxRetries      int
	AllowedPatterns []string
	TimestampField  string
	Timeout         time.Duration // response header timeout, zero means none
}

// ElasticsearchService searches operational logs.
type ElasticsearchService struct {
	client          *elasticsearch.Client
	allowedPatterns []string
	timestampField  string
}

func NewElasticsearchService(cfg ElasticsearchConfig) (*ElasticsearchService, error) {
	esCfg := elasticsearch.Config{
		Addresses:  cfg.Addresses,
		MaxRetries: cfg.MaxRetries,
		Username:   cfg.Username,
		Password:   cfg.Password,
	}
	if !cfg.VerifyCerts || cfg.Timeout > 0 {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = cfg.Timeout
		if !cfg.VerifyCerts {
			tr.TLSClientConfig = &tls.Config{
				InsecureSkipVerify: true, // #nosec G402 - explicitly disabled in config
			}
		}
		esCfg.Transport = tr
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch.NewClient: %w", err)
	}
	ts := cfg.TimestampField
	if ts == "" {
		ts = "@timestamp"
	}
	return &ElasticsearchService{
		client:          client,
		allowedPatterns: cfg.AllowedPatterns,
		timestampField:  ts,
	}, nil
}

// IsIndexAllowed reports whether index matches a configured pattern.
// With no patterns configured every index is allowed.
func (s *ElasticsearchService) IsIndexAllowed(index string) bool {
	if len(s.allowedPatterns) == 0 {
		return true
	}
	for _, pattern := range s.allowedPatterns {
		if matched, err := filepath.Match(pattern, index); err == nil && matched {
			return true
		}
		prefix := strings.TrimSuffix(pattern, "*")
		if prefix != pattern && strings.HasPrefix(index, prefix) {
			return true
		}
	}
	return false
}

// TestConnection pings the cluster.
func (s *ElasticsearchService) TestConnection(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping error: %s", res.Status())
	}
	return nil
}

// LogQuery selects log documents.
type LogQuery struct {
	Index string
	Query string // Lucene query_string syntax
	Since string // relative window such as "15m" or "1h"; empty means no bound
	Size  int
}

// LogSearchResult is the trimmed search response handed to the model.
type LogSearchResult struct {
	Index     string                   `json:"index"`
	TookMs    int                      `json:"took_ms"`
	TotalHits int64                    `json:"total_hits"`
	Hits      []map[string]interface{} `json:"hits"`
}

// SearchLogs runs a query_string search, newest first.
func (s *ElasticsearchService) SearchLogs(ctx context.Context, q LogQuery) (*LogSearchResult, error) {
	if !s.IsIndexAllowed(q.Index) {
		return nil, fmt.Errorf("access to index %q is not permitted", q.Index)
	}

	body, err := json.Marshal(buildLogQuery(q, s.timestampField))
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	opts := []func(*esapi.SearchRequest){
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(q.Index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	}
	res, err := s.client.Search(opts...)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := decodeBody(res.Body, res.IsError(), res.Status())
	if err != nil {
		return nil, err
	}
	return parseLogSearch(q.Index, raw), nil
}

func buildLogQuery(q LogQuery, tsField string) map[string]interface{} {
	filters := []interface{}{}
	if q.Since != "" {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				tsField: map[string]interface{}{"gte": "now-" + q.Since},
			},
		})
	}
	return map[string]interface{}{
		"size": q.Size,
		"sort": []interface{}{
			map[string]interface{}{tsField: map[string]interface{}{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"query_string": map[string]interface{}{"query": q.Query},
					},
				},
				"filter": filters,
			},
		},
	}
}

func decodeBody(r io.Reader, isError bool, status string) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if isError {
		if errObj, ok := result["error"]; ok {
			return nil, fmt.Errorf("elasticsearch error [%s]: %v", status, errObj)
		}
		return nil, fmt.Errorf("elasticsearch error: %s", status)
	}
	return result, nil
}

func parseLogSearch(index string, raw map[string]interface{}) *LogSearchResult {
	out := &LogSearchResult{Index: index, Hits: []map[string]interface{}{}}
	if took, ok := raw["took"].(float64); ok {
		out.TookMs = int(took)
	}
	hitsObj, ok := raw["hits"].(map[string]interface{})
	if !ok {
		return out
	}
	if total, ok := hitsObj["total"].(map[string]interface{}); ok {
		if v, ok := total["value"].(float64); ok {
			out.TotalHits = int64(v)
		}
	}
	hits, _ := hitsObj["hits"].([]interface{})
	for _, h := range hits {
		hm, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		if src, ok := hm["_source"].(map[string]interface{}); ok {
			out.Hits = append(out.Hits, src)
		}
	}
	return out
}
