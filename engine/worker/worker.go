package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gamevault/recon"
	"github.com/gamevault/recon/engine"
)

// Message is one mail handle the poll loop processes: a stable identifier for
// dedup plus the plain-text body.
type Message struct {
	ID   string
	Body string
}

// Mailbox fetches unseen messages from the bank sender, in arrival order.
type Mailbox interface {
	FetchUnseen(ctx context.Context) ([]Message, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, n *engine.PaymentNotification, now time.Time) (engine.MatchOutcome, error)
}

type OrderLoader interface {
	Load(ctx context.Context, id string) (*recon.Order, error)
}

// Mailer sends the customer a status email. Implementations are asynchronous.
type Mailer interface {
	SendOrderUpdate(o *recon.Order)
}

var (
	mMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recon_messages_total",
		Help: "Bank notification emails picked up by the poll loop.",
	})
	mOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_outcomes_total",
		Help: "Reconciliation outcomes by kind.",
	}, []string{"outcome"})
	mTicksFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recon_ticks_failed_total",
		Help: "Poll ticks aborted by a mail or store failure.",
	})
)

func init() {
	prometheus.MustRegister(mMessages, mOutcomes, mTicksFailed)
}

type Worker struct {
	mailbox  Mailbox
	matcher  Reconciler
	ledger   *engine.Ledger
	orders   OrderLoader
	mailer   Mailer
	interval time.Duration
	l        *zap.Logger
}

// New wires the poll loop. orders and mailer are optional: without them the
// worker still reconciles, it just sends no customer email.
func New(mailbox Mailbox, matcher Reconciler, ledger *engine.Ledger, orders OrderLoader, mailer Mailer, interval time.Duration) *Worker {
	return &Worker{
		mailbox:  mailbox,
		matcher:  matcher,
		ledger:   ledger,
		orders:   orders,
		mailer:   mailer,
		interval: interval,
		l:        zap.L().Named("verify_worker"),
	}
}

// Run drives fetch, extract, dedup and reconcile until the context is
// cancelled. The first tick runs immediately so a restart does not sit on
// pending notifications for a whole interval. One tick runs at a time; a
// failed tick is logged and the loop proceeds, the cadence itself is the
// retry mechanism.
func (w *Worker) Run(ctx context.Context) {
	w.l.Info("Started.", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.tick(ctx); err != nil {
			mTicksFailed.Inc()
			w.l.Warn("Tick failed.", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.l.Info("Stopped.")
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) tick(ctx context.Context) error {
	msgs, err := w.mailbox.FetchUnseen(ctx)
	if err != nil {
		return errors.Wrap(err, "Failed fetch unseen messages")
	}
	for _, msg := range msgs {
		w.process(ctx, msg)
	}
	return nil
}

func (w *Worker) process(ctx context.Context, msg Message) {
	now := time.Now()
	if w.ledger.Seen(msg.ID) {
		w.l.Debug("Message already handled.", zap.String("message_id", msg.ID))
		return
	}
	mMessages.Inc()

	n := engine.Extract(msg.ID, msg.Body)
	if n == nil {
		// not a payment notification, skip silently
		w.ledger.Mark(msg.ID, now)
		return
	}

	outcome, err := w.matcher.Reconcile(ctx, n, now)
	if err != nil {
		// leave the message unmarked so a re-seen copy can retry
		w.l.Warn("Failed reconcile notification.",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return
	}
	w.ledger.Mark(msg.ID, now)
	mOutcomes.WithLabelValues(string(outcome.Kind)).Inc()

	switch outcome.Kind {
	case engine.OutcomeMatched, engine.OutcomeEscalated:
		w.notifyCustomers(ctx, outcome.OrderIDs)
	}
}

func (w *Worker) notifyCustomers(ctx context.Context, ids []string) {
	if w.orders == nil || w.mailer == nil {
		return
	}
	for _, id := range ids {
		o, err := w.orders.Load(ctx, id)
		if err != nil {
			w.l.Warn("Failed load order for customer email.",
				zap.String("order_id", id),
				zap.Error(err),
			)
			continue
		}
		w.mailer.SendOrderUpdate(o)
	}
}
