package storage

import (
	"context"
	"errors"

	"poolScope/internal/model"
)

// Sink archives enriched pools after a fresh scan.
type Sink interface {
	PutPools(ctx context.Context, pools []model.EnrichedPool) error
}

// Multi writes to every sink and joins their errors.
type Multi []Sink

func (m Multi) PutPools(ctx context.Context, pools []model.EnrichedPool) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.PutPools(ctx, pools); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
