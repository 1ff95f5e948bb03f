package engine

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gamevault/recon"
)

// MatchingWindow bounds how far back an order may have been created and still
// be a candidate. Orders at exactly the cutoff are excluded.
const MatchingWindow = 20 * time.Minute

// amountTolerance is the permitted difference between the notified amount and
// the order total in the reference phase.
var amountTolerance = decimal.New(1, -2) // 0.01

// OrderStore is the bounded view of the order table the matcher needs.
// Both finders must apply the status and created_at filters themselves so
// every reconciliation acts on a fresh read.
type OrderStore interface {
	FindVerifying(ctx context.Context, since time.Time) ([]recon.Order, error)
	FindVerifyingByAmount(ctx context.Context, amount decimal.Decimal, since time.Time) ([]recon.Order, error)
	SetStatus(ctx context.Context, ids []string, status recon.OrderStatus) error
}

// Alert describes an ambiguous match for human resolution.
type Alert struct {
	Amount       decimal.Decimal `json:"amount"`
	RemitterName string          `json:"remitter_name"`
	Orders       []AlertOrder    `json:"orders"`
	// NameFiltered reports whether name evidence backed the candidate set or
	// the matcher fell back to amount-only candidates.
	NameFiltered bool `json:"name_filtered"`
}

type AlertOrder struct {
	ID           string `json:"id"`
	RemitterName string `json:"remitter_name,omitempty"`
}

// Notifier delivers an escalation alert. Delivery is best-effort: a failure is
// logged by the matcher and never reverses the store write that preceded it.
type Notifier interface {
	Notify(alert Alert) error
}

type OutcomeKind string

const (
	OutcomeMatched   OutcomeKind = "matched"
	OutcomeEscalated OutcomeKind = "escalated"
	OutcomeUnmatched OutcomeKind = "unmatched"
)

type MatchOutcome struct {
	Kind     OutcomeKind
	OrderIDs []string
}

type Matcher struct {
	store    OrderStore
	notifier Notifier
	l        *zap.Logger
}

func NewMatcher(store OrderStore, notifier Notifier) *Matcher {
	return &Matcher{
		store:    store,
		notifier: notifier,
		l:        zap.L().Named("matcher"),
	}
}

// Reconcile matches one payment notification against pending orders.
//
// Phase 1 treats a unique reference-digest match as ground truth and skips
// phase 2 entirely. A reference that matches zero or several candidates is not
// ambiguity, it simply fails to disambiguate and yields to amount matching.
// Phase 2 matches on exact amount, narrowed by fuzzy remitter name when one is
// available; a unique candidate advances, several escalate, none is dropped.
func (m *Matcher) Reconcile(ctx context.Context, n *PaymentNotification, now time.Time) (MatchOutcome, error) {
	since := now.Add(-MatchingWindow)

	if n.ReferenceID != "" {
		outcome, done, err := m.matchByReference(ctx, n, since)
		if err != nil {
			return MatchOutcome{}, err
		}
		if done {
			return outcome, nil
		}
	}
	return m.matchByAmount(ctx, n, since)
}

func (m *Matcher) matchByReference(ctx context.Context, n *PaymentNotification, since time.Time) (MatchOutcome, bool, error) {
	orders, err := m.store.FindVerifying(ctx, since)
	if err != nil {
		return MatchOutcome{}, false, errors.Wrap(err, "Failed select verifying orders")
	}

	var hits []recon.Order
	for _, o := range orders {
		if ReferenceDigest(o.ID) != n.ReferenceID {
			continue
		}
		if o.TotalAmount.Sub(n.Amount).Abs().Cmp(amountTolerance) >= 0 {
			continue
		}
		hits = append(hits, o)
	}
	if len(hits) != 1 {
		return MatchOutcome{}, false, nil
	}

	if err := m.store.SetStatus(ctx, []string{hits[0].ID}, recon.OrderStatusProcessing); err != nil {
		return MatchOutcome{}, false, errors.Wrap(err, "Failed set order status processing")
	}
	m.l.Info("Matched by reference.",
		zap.String("order_id", hits[0].ID),
		zap.String("reference_id", n.ReferenceID),
		zap.String("amount", n.Amount.StringFixed(2)),
	)
	return MatchOutcome{Kind: OutcomeMatched, OrderIDs: []string{hits[0].ID}}, true, nil
}

func (m *Matcher) matchByAmount(ctx context.Context, n *PaymentNotification, since time.Time) (MatchOutcome, error) {
	orders, err := m.store.FindVerifyingByAmount(ctx, n.Amount, since)
	if err != nil {
		return MatchOutcome{}, errors.Wrap(err, "Failed select verifying orders by amount")
	}
	if len(orders) == 0 {
		m.l.Warn("No matching verifying order.",
			zap.String("amount", n.Amount.StringFixed(2)),
			zap.String("remitter_name", n.RemitterName),
		)
		return MatchOutcome{Kind: OutcomeUnmatched}, nil
	}

	candidates := orders
	nameFiltered := false
	if n.RemitterName != "" && n.RemitterName != UnknownRemitter {
		// name evidence too sparse to discriminate is discarded rather than
		// causing a false negative
		if byName := filterByRemitter(orders, n.RemitterName); len(byName) > 0 {
			candidates = byName
			nameFiltered = true
		}
	}

	if len(candidates) == 1 {
		if err := m.store.SetStatus(ctx, []string{candidates[0].ID}, recon.OrderStatusProcessing); err != nil {
			return MatchOutcome{}, errors.Wrap(err, "Failed set order status processing")
		}
		m.l.Info("Matched by amount.",
			zap.String("order_id", candidates[0].ID),
			zap.String("amount", n.Amount.StringFixed(2)),
			zap.Bool("name_filtered", nameFiltered),
		)
		return MatchOutcome{Kind: OutcomeMatched, OrderIDs: []string{candidates[0].ID}}, nil
	}

	ids := make([]string, 0, len(candidates))
	alert := Alert{
		Amount:       n.Amount,
		RemitterName: n.RemitterName,
		NameFiltered: nameFiltered,
	}
	for _, o := range candidates {
		ids = append(ids, o.ID)
		ao := AlertOrder{ID: o.ID}
		if o.RemitterName != nil {
			ao.RemitterName = *o.RemitterName
		}
		alert.Orders = append(alert.Orders, ao)
	}
	if err := m.store.SetStatus(ctx, ids, recon.OrderStatusManualReview); err != nil {
		return MatchOutcome{}, errors.Wrap(err, "Failed set orders status manual_review")
	}
	m.l.Warn("Ambiguous match, escalated.",
		zap.Strings("order_ids", ids),
		zap.String("amount", n.Amount.StringFixed(2)),
		zap.Bool("name_filtered", nameFiltered),
	)

	// the manual_review write is the source of truth, the alert is advisory
	// and must not block the next reconciliation
	go func() {
		if err := m.notifier.Notify(alert); err != nil {
			m.l.Warn("Failed deliver escalation alert.", zap.Error(err))
		}
	}()

	return MatchOutcome{Kind: OutcomeEscalated, OrderIDs: ids}, nil
}

// filterByRemitter keeps candidates whose normalized checkout name contains
// the notified name or vice versa. Bank-supplied names are often truncated or
// reordered, so bidirectional containment beats equality here.
func filterByRemitter(orders []recon.Order, remitter string) []recon.Order {
	want := normalizeName(remitter)
	if want == "" {
		return nil
	}
	var res []recon.Order
	for _, o := range orders {
		if o.RemitterName == nil {
			continue
		}
		have := normalizeName(*o.RemitterName)
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			res = append(res, o)
		}
	}
	return res
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
