// Package aggregation holds the derived-state aggregators. Each call is a pure function of
// the store snapshot it reads and its parameters; nothing is retained between calls.
package aggregation

import (
	"context"
	"log/slog"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/metrics"
)

// ReportWarnings logs and counts integrity anomalies. The values were already clamped.
func ReportWarnings(ctx context.Context, logger *slog.Logger, op string, warnings []domain.IntegrityWarning) {
	for _, w := range warnings {
		metrics.IntegrityWarningsTotal.WithLabelValues(string(w.Kind)).Inc()
		logger.WarnContext(ctx, "Integrity anomaly clamped",
			"op", op,
			"kind", w.Kind,
			"asset", w.Asset,
			"subject", w.Subject,
			"detail", w.Detail,
		)
	}
}
