package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/opsdesk/fncall/internal/security"
	"github.com/opsdesk/fncall/internal/service"
	"github.com/opsdesk/fncall/internal/tools"
)

func TestCurrentWeather(t *testing.T) {
	tests := []struct {
		location string
		unit     string
		wantTemp float64
		wantUnit string
	}{
		{"Dalian", "", 10, "celsius"},
		{"大连", "celsius", 10, "celsius"},
		{"shanghai, china", "", 36, "celsius"},
		{"Shenzhen", "fahrenheit", 98.6, "fahrenheit"},
		{"Reykjavik", "", -1, "celsius"},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			args := tools.Arguments{"location": tt.location}
			if tt.unit != "" {
				args["unit"] = tt.unit
			}
			out, err := tools.CurrentWeather(context.Background(), args)
			if err != nil {
				t.Fatal(err)
			}
			var report struct {
				Location    string   `json:"location"`
				Temperature float64  `json:"temperature"`
				Unit        string   `json:"unit"`
				Forecast    []string `json:"forecast"`
			}
			if err := json.Unmarshal([]byte(out), &report); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if report.Temperature != tt.wantTemp {
				t.Errorf("temperature = %v, want %v", report.Temperature, tt.wantTemp)
			}
			if report.Unit != tt.wantUnit {
				t.Errorf("unit = %q, want %q", report.Unit, tt.wantUnit)
			}
			if report.Location != tt.location || len(report.Forecast) != 2 {
				t.Errorf("report = %+v", report)
			}
		})
	}
}

func TestStatusProbeRanges(t *testing.T) {
	probe := tools.NewStatusProbe(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		out, err := probe.Status(context.Background(), nil)
		if err != nil {
			t.Fatal(err)
		}
		var st struct {
			Connections int    `json:"connections"`
			CPUUsage    string `json:"cpu_usage"`
			MemoryUsage string `json:"memory_usage"`
		}
		if err := json.Unmarshal([]byte(out), &st); err != nil {
			t.Fatal(err)
		}
		if st.Connections < 10 || st.Connections > 100 {
			t.Fatalf("connections %d out of range", st.Connections)
		}
		checkPercent(t, st.CPUUsage, 1, 100)
		checkPercent(t, st.MemoryUsage, 10, 100)
	}
}

func checkPercent(t *testing.T, s string, lo, hi float64) {
	t.Helper()
	if !strings.HasSuffix(s, "%") {
		t.Fatalf("%q is not a percentage", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		t.Fatal(err)
	}
	if v < lo || v > hi {
		t.Fatalf("%v outside [%v, %v]", v, lo, hi)
	}
}

func TestRegisterBuiltins(t *testing.T) {
	reg := tools.NewRegistry()
	if err := tools.RegisterBuiltins(reg, nil); err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 2 {
		t.Fatalf("Len = %d", reg.Len())
	}
	var dup *tools.DuplicateToolError
	if err := tools.RegisterBuiltins(reg, nil); !errors.As(err, &dup) {
		t.Errorf("second registration should collide, got %v", err)
	}
}

type fakeSearcher struct {
	got service.LogQuery
	err error
}

func (f *fakeSearcher) SearchLogs(_ context.Context, q service.LogQuery) (*service.LogSearchResult, error) {
	f.got = q
	if f.err != nil {
		return nil, f.err
	}
	return &service.LogSearchResult{
		Index:     q.Index,
		TotalHits: 1,
		Hits:      []map[string]interface{}{{"message": "too many connections"}},
	}, nil
}

func TestLogSearch(t *testing.T) {
	fs := &fakeSearcher{}
	fn := tools.LogSearch(fs)

	out, err := fn(context.Background(), tools.Arguments{
		"index": "logs-db-*",
		"query": "level:error",
		"size":  float64(500),
	})
	if err != nil {
		t.Fatal(err)
	}
	if fs.got.Size != 100 {
		t.Errorf("size should be capped at 100, got %d", fs.got.Size)
	}
	if !strings.Contains(out, "too many connections") {
		t.Errorf("payload = %s", out)
	}

	_, _ = fn(context.Background(), tools.Arguments{"index": "logs", "query": "*"})
	if fs.got.Size != 20 {
		t.Errorf("default size = %d, want 20", fs.got.Size)
	}

	fs.err = errors.New("cluster unavailable")
	if _, err := fn(context.Background(), tools.Arguments{"index": "logs", "query": "*"}); err == nil {
		t.Error("search failure should surface")
	}
}

type fakeQuerier struct {
	calls    int
	estimate int64
}

func (f *fakeQuerier) EstimateBytes(context.Context, string) (int64, error) {
	return f.estimate, nil
}

func (f *fakeQuerier) Query(_ context.Context, sql string, _ time.Duration, maxRows int) (*service.QueryResult, error) {
	f.calls++
	return &service.QueryResult{
		Columns: []string{"hour", "max_connections"},
		Rows:    []map[string]interface{}{{"hour": "15:00", "max_connections": 97}},
	}, nil
}

func TestMetricsQuery(t *testing.T) {
	fq := &fakeQuerier{estimate: 1_000_000}
	fn := tools.MetricsQuery(fq, security.NewSQLValidator(), security.NewCostTracker(10_000_000_000))

	out, err := fn(context.Background(), tools.Arguments{
		"sql": "SELECT hour, max_connections FROM ops.db_stats ORDER BY hour DESC LIMIT 24",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "max_connections") {
		t.Errorf("payload = %s", out)
	}

	if _, err := fn(context.Background(), tools.Arguments{"sql": "DROP TABLE ops.db_stats"}); err == nil {
		t.Error("non-SELECT statement should be rejected")
	}
	if fq.calls != 1 {
		t.Errorf("rejected SQL must not reach the warehouse, calls = %d", fq.calls)
	}
}

func TestMetricsQueryScanLimit(t *testing.T) {
	fq := &fakeQuerier{estimate: 50_000_000_000}
	fn := tools.MetricsQuery(fq, security.NewSQLValidator(), security.NewCostTracker(10_000_000_000))

	_, err := fn(context.Background(), tools.Arguments{"sql": "SELECT * FROM ops.raw_events LIMIT 10"})
	if !errors.Is(err, security.ErrScanLimit) {
		t.Fatalf("err = %v, want ErrScanLimit", err)
	}
	if fq.calls != 0 {
		t.Error("over-limit query must not run")
	}

	// Without a tracker the estimate is not consulted.
	fn = tools.MetricsQuery(fq, security.NewSQLValidator(), nil)
	if _, err := fn(context.Background(), tools.Arguments{"sql": "SELECT * FROM ops.raw_events LIMIT 10"}); err != nil {
		t.Fatal(err)
	}
}
