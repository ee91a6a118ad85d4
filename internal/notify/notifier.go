// Package notify delivers qualifying opportunities to the configured chat
// channels. Every registered sender (Discord, Telegram) receives each alert;
// a single sender failure does not prevent delivery to the rest.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "discord").
	Name() string
}

// Notifier fans one opportunity out to all registered senders. It implements
// the evaluator's dispatch interface.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that delivers to the given senders. An empty
// sender list is valid; Dispatch then becomes a no-op.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Dispatch formats the opportunity and sends it to every sender. Errors from
// individual senders are collected and returned as a combined error.
func (n *Notifier) Dispatch(ctx context.Context, result domain.OpportunityResult) error {
	if len(n.senders) == 0 {
		return nil
	}

	title, message := FormatOpportunity(result)

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "opportunity sent",
				slog.String("sender", s.Name()),
				slog.String("key", result.Key),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// FormatOpportunity renders one opportunity as a title and body suitable for
// chat channels.
func FormatOpportunity(result domain.OpportunityResult) (title, message string) {
	title = "Opportunity: " + result.Key
	if name, ok := domain.ParseItemName(result.Key); ok {
		display := name.BaseName
		if name.Skin != "" {
			display += " | " + name.Skin
		}
		if name.Condition != "" {
			display += " (" + name.Condition + ")"
		}
		switch {
		case name.IsStatTrak:
			display = "StatTrak " + display
		case name.IsSouvenir:
			display = "Souvenir " + display
		}
		title = "Opportunity: " + display
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Price: $%.2f\n", result.NormalizedPrice)
	fmt.Fprintf(&b, "Reference: $%.2f\n", result.ReferencePrice)
	fmt.Fprintf(&b, "Profit: %.2f%%\n", result.ProfitPct)
	fmt.Fprintf(&b, "Liquidity: %.2f", result.LiquidityScore)
	return title, b.String()
}
