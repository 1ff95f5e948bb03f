package alerter

import (
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gamevault/recon/engine"
)

// AlertSubject carries ambiguous-match alerts for whoever resolves them.
const AlertSubject = "alerts.payment.ambiguous"

// Mailer sends the alert to the on-call address. Implementations are
// asynchronous and never fail the caller.
type Mailer interface {
	SendAlert(alert engine.Alert)
}

// Alerter delivers escalation alerts: a NATS publish for machine consumers
// plus a best-effort email to the operations address. Delivery is advisory,
// the manual_review write has already been committed by the matcher.
type Alerter struct {
	nc     *nats.EncodedConn
	mailer Mailer
	l      *zap.Logger
}

func New(nc *nats.EncodedConn, mailer Mailer) *Alerter {
	return &Alerter{
		nc:     nc,
		mailer: mailer,
		l:      zap.L().Named("alerter"),
	}
}

func (a *Alerter) Notify(alert engine.Alert) error {
	if a.mailer != nil {
		a.mailer.SendAlert(alert)
	}
	if a.nc == nil {
		a.l.Warn("No alert transport configured, logged only.",
			zap.String("amount", alert.Amount.StringFixed(2)),
			zap.Int("candidates", len(alert.Orders)),
		)
		return nil
	}
	if err := a.nc.Publish(AlertSubject, &alert); err != nil {
		return errors.Wrap(err, "Failed publish alert")
	}
	a.l.Info("Published alert.",
		zap.String("amount", alert.Amount.StringFixed(2)),
		zap.Int("candidates", len(alert.Orders)),
	)
	return nil
}
