// Package credit runs operations behind a per-user credit balance.
package credit

import (
	"context"
	"errors"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/events"
	"github.com/Skotchmaster/office_requests/internal/logging"
	"github.com/Skotchmaster/office_requests/internal/metrics"
	"github.com/Skotchmaster/office_requests/internal/models"
)

type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreditBalance(ctx context.Context, userID uint) (int, error)
	DebitCredit(ctx context.Context, userID uint) (int, error)
}

// Operation is the gated work. It receives the transaction-bound ctx, so
// repo writes it makes commit or roll back together with the charge.
// Side effects outside the database belong after Enforce returns.
type Operation func(ctx context.Context) (map[string]any, error)

type Gate struct {
	Store   Store
	Events  events.Publisher
	Metrics *metrics.Metrics
}

// Enforce checks the stored balance, runs op and, when decrement is set,
// takes one credit. All three happen in one transaction: a failed op leaves
// the balance untouched, and a debit that loses a race to a concurrent
// charge rolls op back with ErrInsufficientCredit. The result carries the
// balance after the call under "credits".
func (g *Gate) Enforce(ctx context.Context, user *models.User, decrement bool, op Operation) (map[string]any, error) {
	if user == nil {
		return nil, autherr.ErrUnauthenticated
	}
	l := logging.FromContext(ctx).With("svc", "credit.gate", "user_id", user.ID)

	var (
		result  map[string]any
		balance int
	)
	err := g.Store.InTx(ctx, func(ctx context.Context) error {
		var err error
		balance, err = g.Store.CreditBalance(ctx, user.ID)
		if err != nil {
			return err
		}
		if balance <= 0 {
			return autherr.ErrInsufficientCredit
		}

		result, err = op(ctx)
		if err != nil {
			return err
		}

		if decrement {
			balance, err = g.Store.DebitCredit(ctx, user.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, autherr.ErrInsufficientCredit) {
			g.Metrics.CreditDenied()
			l.Warn("credit_denied", "status", 403)
		}
		return nil, err
	}

	if result == nil {
		result = map[string]any{}
	}
	result["credits"] = balance
	user.Credits = balance

	if decrement {
		g.Metrics.CreditCharged()
		l.Info("credit_charged", "credits", balance)
		if g.Events != nil {
			left := balance
			ev := events.Event{Type: events.CreditCharged, UserID: user.ID, Username: user.Username, Credits: &left}
			if err := g.Events.Publish(ctx, ev); err != nil {
				l.Warn("event_publish_failed", "type", ev.Type, "error", err)
			}
		}
	}
	return result, nil
}
