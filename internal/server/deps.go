package server

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdesk/fncall/internal/agent"
	"github.com/opsdesk/fncall/internal/config"
	"github.com/opsdesk/fncall/internal/dispatch"
	"github.com/opsdesk/fncall/internal/model"
	"github.com/opsdesk/fncall/internal/security"
	"github.com/opsdesk/fncall/internal/service"
	"github.com/opsdesk/fncall/internal/store"
	"github.com/opsdesk/fncall/internal/tools"
	"github.com/rs/zerolog/log"
)

// Deps is everything built from configuration. The HTTP server and the CLI
// share it.
type Deps struct {
	Agent    *agent.Agent
	Tools    *tools.Invoker
	Store    store.Store
	BigQuery *service.BigQueryService
	Search   *service.ElasticsearchService
}

// Build connects the optional data services, registers tools, creates the
// model client and assembles the agent. A data service that cannot be reached
// is logged and left out along with its tool; a bad model configuration or a
// tool name collision is fatal.
func Build(ctx context.Context, cfg *config.Config, observer dispatch.Observer) (*Deps, error) {
	d := &Deps{}

	// ─── Services ───────────────────────────────────────────────────────────────
	if cfg.GCPProjectID != "" {
		bq, err := service.NewBigQueryService(ctx, cfg.GCPProjectID, cfg.GoogleApplicationCredentials, cfg.BigQueryLocation)
		if err != nil {
			log.Warn().Err(err).Msg("BigQuery service unavailable, query_metrics disabled")
		} else {
			d.BigQuery = bq
		}
	}

	if cfg.ElasticsearchEnabled {
		es, err := service.NewElasticsearchService(service.ElasticsearchConfig{
			Addresses:       []string{cfg.ElasticsearchAddress()},
			Username:        cfg.ElasticsearchUser,
			Password:        cfg.ElasticsearchPassword,
			VerifyCerts:     cfg.ElasticsearchVerifyCerts,
			MaxRetries:      cfg.ElasticsearchMaxRetries,
			AllowedPatterns: cfg.ESAllowedPatterns,
			Timeout:         time.Duration(cfg.ElasticsearchTimeout) * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Elasticsearch service unavailable, search_logs disabled")
		} else {
			d.Search = es
		}
	}

	// ─── Tools ──────────────────────────────────────────────────────────────────
	reg := tools.NewRegistry()
	if err := tools.RegisterBuiltins(reg, nil); err != nil {
		d.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}
	if d.Search != nil {
		if err := reg.Register(tools.LogSearchSpec, tools.LogSearch(d.Search)); err != nil {
			d.Close()
			return nil, fmt.Errorf("register tools: %w", err)
		}
	}
	if d.BigQuery != nil {
		fn := tools.MetricsQuery(d.BigQuery, security.NewSQLValidator(), security.NewCostTracker(cfg.MaxQueryBytesProcessed))
		if err := reg.Register(tools.MetricsQuerySpec, fn); err != nil {
			d.Close()
			return nil, fmt.Errorf("register tools: %w", err)
		}
	}
	d.Tools = tools.NewInvoker(reg,
		tools.WithTimeout(time.Duration(cfg.ToolTimeout)*time.Second),
		tools.WithMaxErrorLen(cfg.MaxToolErrorLength),
	)

	// ─── Model ──────────────────────────────────────────────────────────────────
	client, err := model.New(cfg.ModelConfig())
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("model client: %w", err)
	}

	// ─── Transcripts ────────────────────────────────────────────────────────────
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("transcript store: %w", err)
		}
		d.Store = pg
	} else {
		d.Store = store.NewMemoryStore()
	}

	d.Agent = agent.New(client, d.Tools, agent.Options{
		Store:         d.Store,
		Validator:     security.NewPromptValidator(cfg.MaxPromptLength, cfg.PIIKeywords),
		Router:        service.NewIntentRouter(),
		Audit:         security.NewAuditLogger(cfg.EnableAuditLogging),
		MaxIterations: cfg.MaxIterations,
		Timeout:       time.Duration(cfg.ConversationTimeout) * time.Second,
		Observer:      observer,
	})

	log.Info().
		Str("provider", string(cfg.ModelConfig().Provider)).
		Int("tools", reg.Len()).
		Bool("bigquery_enabled", d.BigQuery != nil).
		Bool("elasticsearch_enabled", d.Search != nil).
		Bool("postgres_transcripts", cfg.DatabaseURL != "").
		Bool("audit_logging", cfg.EnableAuditLogging).
		Msg("service configuration")

	return d, nil
}

// Close releases the data services and the transcript store.
func (d *Deps) Close() {
	if d.BigQuery != nil {
		if err := d.BigQuery.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing BigQuery client")
		}
	}
	if d.Store != nil {
		d.Store.Close()
	}
}
