package model

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/opsdesk/fncall/internal/conversation"
	"github.com/opsdesk/fncall/internal/dispatch"
	"github.com/opsdesk/fncall/internal/tools"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// RetryPolicy controls Retrying.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
	IsRetryable func(error) bool
}

// Retrying retries a ModelClient with exponential backoff.
type Retrying struct {
	next   dispatch.ModelClient
	policy RetryPolicy

	mu  sync.Mutex
	rnd *rand.Rand
}

// DefaultJitter is the fraction of each delay added at random.
const DefaultJitter = 0.2

// WithRetry wraps next. Zero policy fields take defaults: 3 attempts, 200ms
// base delay, 5s cap, DefaultJitter. A negative Jitter disables jitter.
func WithRetry(next dispatch.ModelClient, p RetryPolicy) *Retrying {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 200 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Jitter == 0 {
		p.Jitter = DefaultJitter
	}
	if p.IsRetryable == nil {
		p.IsRetryable = IsRetryable
	}
	return &Retrying{
		next:   next,
		policy: p,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Policy returns the effective policy after defaults.
func (r *Retrying) Policy() RetryPolicy { return r.policy }

// Send implements dispatch.ModelClient.
func (r *Retrying) Send(ctx context.Context, turns []conversation.Turn, specs []tools.Spec) (dispatch.Reply, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reply, err := r.next.Send(ctx, turns, specs)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !r.policy.IsRetryable(err) || attempt == r.policy.MaxAttempts-1 {
			break
		}

		delay := r.backoff(attempt)
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("model call failed, retrying")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (r *Retrying) backoff(attempt int) time.Duration {
	d := time.Duration(float64(r.policy.BaseDelay) * math.Pow(2, float64(attempt)))
	if d > r.policy.MaxDelay {
		d = r.policy.MaxDelay
	}
	if r.policy.Jitter > 0 {
		r.mu.Lock()
		f := r.rnd.Float64()
		r.mu.Unlock()
		d += time.Duration(float64(d) * r.policy.Jitter * f)
	}
	return d
}

// IsRetryable reports whether a model call error is worth another attempt.
// Cancellation and client errors other than 408 and 429 are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	status := 0
	var oaiErr *openai.APIError
	var oaiReqErr *openai.RequestError
	var antErr *anthropic.Error
	switch {
	case errors.As(err, &oaiErr):
		status = oaiErr.HTTPStatusCode
	case errors.As(err, &oaiReqErr):
		status = oaiReqErr.HTTPStatusCode
	case errors.As(err, &antErr):
		status = antErr.StatusCode
	}
	switch {
	case status == 0:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 400 && status < 500:
		return false
	}
	return true
}
