package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/casemap-service/internal/domain"
)

// Transformer turns a raw daily slice into a DaySnapshot: it normalizes the
// payload and rolls the features up through the location resolver.
type Transformer struct {
	resolver domain.Resolver
	logger   *slog.Logger
}

// NewTransformer creates a Transformer. A nil resolver leaves every feature
// unresolved.
func NewTransformer(resolver domain.Resolver, logger *slog.Logger) *Transformer {
	return &Transformer{
		resolver: resolver,
		logger:   logger,
	}
}

// Transform parses and aggregates one payload. Errors wrap domain.ErrParse.
func (t *Transformer) Transform(payload []byte) (domain.DaySnapshot, error) {
	slice, err := domain.Normalize(payload)
	if err != nil {
		return domain.DaySnapshot{}, fmt.Errorf("transform slice: %w", err)
	}

	snap := domain.Aggregate(slice, t.resolver)
	if snap.Unresolved > 0 {
		t.logger.Debug("features dropped as unresolved",
			"date", snap.Date,
			"unresolved", snap.Unresolved,
			"kept", len(snap.Atomic),
		)
	}
	return snap, nil
}
