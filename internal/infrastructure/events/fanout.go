package events

import (
	"context"
	"errors"
	"fmt"

	"pairchat/internal/domain/service"
	"pairchat/internal/infrastructure/metrics"
)

type namedNotifier struct {
	name     string
	notifier service.DeliveryNotifier
}

// Fanout calls every registered notifier in order. One failing notifier does
// not stop the others; all failures are joined into the returned error.
type Fanout struct {
	notifiers []namedNotifier
}

func NewFanout() *Fanout {
	return &Fanout{}
}

func (f *Fanout) Add(name string, notifier service.DeliveryNotifier) *Fanout {
	if notifier != nil {
		f.notifiers = append(f.notifiers, namedNotifier{name: name, notifier: notifier})
	}
	return f
}

func (f *Fanout) Notify(ctx context.Context, delivery service.Delivery) error {
	var errs []error
	for _, n := range f.notifiers {
		if err := n.notifier.Notify(ctx, delivery); err != nil {
			metrics.NotifyFailures.WithLabelValues(n.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", n.name, err))
		}
	}
	return errors.Join(errs...)
}
