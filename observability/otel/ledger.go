package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"shiftchain/core/events"
)

const ledgerScope = "shiftchain/ledger"

var outcomeKey = attribute.Key("outcome")

// Ledger mirrors committed shift events into OpenTelemetry instruments so
// the OTLP collector receives ledger activity next to the runtime spans. It
// implements events.Emitter.
type Ledger struct {
	settlements metric.Int64Counter
	pairs       metric.Int64Counter
	rewards     metric.Float64Counter
	slots       metric.Float64Counter
	employees   metric.Int64Counter
	employers   metric.Int64Counter
	capacity    metric.Int64Counter
}

// NewLedger creates the instruments on provider, or on the global provider
// when provider is nil. Instruments created on the global provider follow a
// provider installed later by Init.
func NewLedger(provider metric.MeterProvider) (*Ledger, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(ledgerScope)

	var errs []error
	int64Counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	float64Counter := func(name, unit, desc string) metric.Float64Counter {
		c, err := meter.Float64Counter(name, metric.WithUnit(unit), metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	l := &Ledger{
		settlements: int64Counter("shift.settlements", "Committed accrual batches."),
		pairs:       int64Counter("shift.accrual.pairs", "Employee pairs by accrual outcome."),
		rewards:     float64Counter("shift.rewards.minted", "{token}", "Reward tokens minted."),
		slots:       float64Counter("shift.slots.accrued", "{slot}", "Slots credited to employees."),
		employees:   int64Counter("shift.employees.registered", "Employee records allocated."),
		employers:   int64Counter("shift.employers.initialized", "Employer records initialized."),
		capacity:    int64Counter("shift.employer.capacity_reached", "Registrations skipped at capacity."),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Emit(e events.Event) {
	if l == nil {
		return
	}
	ctx := context.Background()
	switch evt := e.(type) {
	case events.ShiftSettled:
		l.settlements.Add(ctx, 1)
		l.pairs.Add(ctx, int64(evt.Processed), metric.WithAttributes(outcomeKey.String("processed")))
		l.pairs.Add(ctx, int64(evt.Skipped), metric.WithAttributes(outcomeKey.String("skipped")))
		l.pairs.Add(ctx, int64(evt.Idle), metric.WithAttributes(outcomeKey.String("idle")))
		l.rewards.Add(ctx, float64(evt.Amount))
		l.slots.Add(ctx, float64(evt.Slots))
	case events.EmployeeRegistered:
		l.employees.Add(ctx, 1)
	case events.EmployerInitialized:
		l.employers.Add(ctx, 1)
	case events.EmployerCapacityReached:
		l.capacity.Add(ctx, 1)
	}
}
