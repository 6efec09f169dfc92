package notify

import (
	"context"
	"fmt"
	"log/slog"

	"streamarb/internal/bus"
	"streamarb/internal/domain"
)

// Alerter formats bus events into operator alerts. It subscribes to the
// opportunity and trade-outcome topics; the raw per-action topics are too
// chatty for a phone.
type Alerter struct {
	notifier *Notifier
	logger   *slog.Logger
}

// NewAlerter registers an Alerter on the bus.
func NewAlerter(notifier *Notifier, events *bus.Bus, logger *slog.Logger) *Alerter {
	a := &Alerter{
		notifier: notifier,
		logger:   logger.With(slog.String("component", "alerter")),
	}
	events.Subscribe(bus.TopicValidOpportunity, a.Handle)
	events.Subscribe(bus.TopicExitCompleted, a.Handle)
	events.Subscribe(bus.TopicTradeFailed, a.Handle)
	return a
}

// Handle formats one event and hands it to the notifier. Delivery errors are
// logged; alerts never fail the pipeline.
func (a *Alerter) Handle(ctx context.Context, ev bus.Event) {
	var title, message string

	switch p := ev.Payload.(type) {
	case domain.Opportunity:
		title = fmt.Sprintf("Opportunity %s %s", p.Direction, p.ToAsset)
		message = fmt.Sprintf(
			"tx %s\nsize $%.0f over %ds\n%s -> %s at height %d",
			shortTx(p.TxID), p.SizeUSD, p.DurationSeconds, p.FromAsset, p.ToAsset, p.Height,
		)
	case domain.Trade:
		title, message = formatTrade(p)
	default:
		a.logger.WarnContext(ctx, "unexpected payload type",
			slog.String("topic", string(ev.Topic)),
		)
		return
	}

	if err := a.notifier.Notify(ctx, string(ev.Topic), title, message); err != nil {
		a.logger.WarnContext(ctx, "alert delivery failed",
			slog.String("topic", string(ev.Topic)),
			slog.String("error", err.Error()),
		)
	}
}

func formatTrade(t domain.Trade) (title, message string) {
	switch t.State {
	case domain.TradeStateCompleted:
		pnl := 0.0
		if t.PnL != nil {
			pnl = *t.PnL
		}
		title = fmt.Sprintf("Trade closed %+.2f USD", pnl)
		exitPrice := 0.0
		if t.Exit != nil {
			exitPrice = t.Exit.Price
		}
		message = fmt.Sprintf(
			"tx %s\n%s %.6f in at %.2f, out at %.2f",
			shortTx(t.TxID), t.Entry.Side, t.Entry.Quantity, t.Entry.Price, exitPrice,
		)
	default:
		title = "Trade failed"
		message = fmt.Sprintf("tx %s\n%s", shortTx(t.TxID), t.FailedFor)
	}
	return title, message
}

// shortTx abbreviates a 64-char transaction id for display.
func shortTx(txID string) string {
	if len(txID) <= 12 {
		return txID
	}
	return txID[:8] + ".." + txID[len(txID)-4:]
}
