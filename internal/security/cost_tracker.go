package security

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const bytesPerGB = 1_000_000_000.0
const bigQueryCostPerTB = 5.0 // USD

// ErrScanLimit is returned when a metrics query would scan too much data.
var ErrScanLimit = errors.New("query scan limit exceeded")

// CostTracker caps and logs the bytes scanned by metrics queries. A nil
// tracker allows everything and logs nothing.
type CostTracker struct {
	maxBytes int64
}

func NewCostTracker(maxBytes int64) *CostTracker {
	return &CostTracker{maxBytes: maxBytes}
}

// Check rejects an estimate above the limit.
func (ct *CostTracker) Check(estimatedBytes int64) error {
	if ct == nil || ct.maxBytes <= 0 || estimatedBytes <= ct.maxBytes {
		return nil
	}
	return fmt.Errorf("%w: would process %.2fGB, limit %.2fGB",
		ErrScanLimit, float64(estimatedBytes)/bytesPerGB, float64(ct.maxBytes)/bytesPerGB)
}

// Record logs what a finished query cost.
func (ct *CostTracker) Record(sql string, bytesProcessed int64, elapsed time.Duration) {
	if ct == nil {
		return
	}
	processedGB := float64(bytesProcessed) / bytesPerGB
	costUSD := processedGB / 1000.0 * bigQueryCostPerTB

	log.Info().
		Str("event", "query_cost").
		Str("sql_hash", hashStr(sql)[:16]).
		Float64("processed_gb", processedGB).
		Float64("cost_usd", costUSD).
		Dur("elapsed", elapsed).
		Msg("metrics query cost")
}

func hashStr(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
