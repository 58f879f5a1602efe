package events

import (
	"context"
	"errors"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// Fanout delivers every event to all publishers and joins their errors.
type Fanout []ports.EventPublisher

var _ ports.EventPublisher = Fanout(nil)

// Publish never stops at the first failing publisher.
func (f Fanout) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
