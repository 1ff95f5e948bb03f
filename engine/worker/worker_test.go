package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamevault/recon"
	"github.com/gamevault/recon/engine"
)

type fakeMailbox struct {
	mu      sync.Mutex
	msgs    []Message
	err     error
	fetches int
}

func (m *fakeMailbox) FetchUnseen(context.Context) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	return m.msgs, m.err
}

func (m *fakeMailbox) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

type fakeReconciler struct {
	outcome engine.MatchOutcome
	err     error
	seen    []*engine.PaymentNotification
}

func (r *fakeReconciler) Reconcile(_ context.Context, n *engine.PaymentNotification, _ time.Time) (engine.MatchOutcome, error) {
	r.seen = append(r.seen, n)
	return r.outcome, r.err
}

type fakeLoader struct {
	orders map[string]*recon.Order
}

func (l *fakeLoader) Load(_ context.Context, id string) (*recon.Order, error) {
	o, ok := l.orders[id]
	if !ok {
		return nil, recon.ErrNotFound
	}
	return o, nil
}

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) SendOrderUpdate(o *recon.Order) {
	m.sent = append(m.sent, o.ID)
}

const paymentBody = "You received S$25.00 with reference 48213090. From: PETER GOH"

func TestTickProcessesEachMessageOnce(t *testing.T) {
	mailbox := &fakeMailbox{msgs: []Message{
		{ID: "msg-1", Body: paymentBody},
		{ID: "msg-2", Body: "weekly newsletter, no money inside"},
	}}
	rec := &fakeReconciler{outcome: engine.MatchOutcome{Kind: engine.OutcomeUnmatched}}
	w := New(mailbox, rec, engine.NewLedger(time.Hour), nil, nil, time.Second)

	require.NoError(t, w.tick(context.Background()))
	// msg-2 has no amount, only msg-1 reaches the matcher
	require.Len(t, rec.seen, 1)
	assert.Equal(t, "msg-1", rec.seen[0].MessageID)
	assert.Equal(t, "48213090", rec.seen[0].ReferenceID)

	// the same fetch result on the next tick is a no-op
	require.NoError(t, w.tick(context.Background()))
	assert.Len(t, rec.seen, 1)
}

func TestTickPropagatesFetchError(t *testing.T) {
	mailbox := &fakeMailbox{err: errors.New("imap: connection reset")}
	w := New(mailbox, &fakeReconciler{}, engine.NewLedger(time.Hour), nil, nil, time.Second)

	err := w.tick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed fetch unseen messages")
}

func TestProcessRetriesAfterReconcileError(t *testing.T) {
	mailbox := &fakeMailbox{msgs: []Message{{ID: "msg-1", Body: paymentBody}}}
	rec := &fakeReconciler{err: errors.New("pq: connection refused")}
	ledger := engine.NewLedger(time.Hour)
	w := New(mailbox, rec, ledger, nil, nil, time.Second)

	require.NoError(t, w.tick(context.Background()))
	assert.False(t, ledger.Seen("msg-1"), "failed message must stay unmarked")

	rec.err = nil
	rec.outcome = engine.MatchOutcome{Kind: engine.OutcomeUnmatched}
	require.NoError(t, w.tick(context.Background()))
	assert.Len(t, rec.seen, 2)
	assert.True(t, ledger.Seen("msg-1"))
}

func TestProcessMarksNonPaymentMessages(t *testing.T) {
	ledger := engine.NewLedger(time.Hour)
	rec := &fakeReconciler{}
	w := New(&fakeMailbox{}, rec, ledger, nil, nil, time.Second)

	w.process(context.Background(), Message{ID: "msg-spam", Body: "hello"})
	assert.True(t, ledger.Seen("msg-spam"))
	assert.Empty(t, rec.seen)
}

func TestProcessNotifiesMatchedCustomers(t *testing.T) {
	order := &recon.Order{
		ID:          "d94f5e3a-2c1b-4f6e-8a7d-0b9c8e7f6a5d",
		TotalAmount: decimal.RequireFromString("25.00"),
		Status:      recon.OrderStatusProcessing,
	}
	rec := &fakeReconciler{outcome: engine.MatchOutcome{
		Kind:     engine.OutcomeMatched,
		OrderIDs: []string{order.ID},
	}}
	loader := &fakeLoader{orders: map[string]*recon.Order{order.ID: order}}
	mailer := &fakeMailer{}
	w := New(&fakeMailbox{}, rec, engine.NewLedger(time.Hour), loader, mailer, time.Second)

	w.process(context.Background(), Message{ID: "msg-1", Body: paymentBody})
	assert.Equal(t, []string{order.ID}, mailer.sent)
}

func TestProcessSkipsEmailWhenOrderLoadFails(t *testing.T) {
	rec := &fakeReconciler{outcome: engine.MatchOutcome{
		Kind:     engine.OutcomeEscalated,
		OrderIDs: []string{"gone", "d94f5e3a-2c1b-4f6e-8a7d-0b9c8e7f6a5d"},
	}}
	order := &recon.Order{ID: "d94f5e3a-2c1b-4f6e-8a7d-0b9c8e7f6a5d"}
	loader := &fakeLoader{orders: map[string]*recon.Order{order.ID: order}}
	mailer := &fakeMailer{}
	w := New(&fakeMailbox{}, rec, engine.NewLedger(time.Hour), loader, mailer, time.Second)

	w.process(context.Background(), Message{ID: "msg-1", Body: paymentBody})
	assert.Equal(t, []string{order.ID}, mailer.sent)
}

func TestProcessWithoutMailerStillReconciles(t *testing.T) {
	rec := &fakeReconciler{outcome: engine.MatchOutcome{
		Kind:     engine.OutcomeMatched,
		OrderIDs: []string{"d94f5e3a-2c1b-4f6e-8a7d-0b9c8e7f6a5d"},
	}}
	w := New(&fakeMailbox{}, rec, engine.NewLedger(time.Hour), nil, nil, time.Second)

	w.process(context.Background(), Message{ID: "msg-1", Body: paymentBody})
	require.Len(t, rec.seen, 1)
}

func TestRunFirstTickImmediate(t *testing.T) {
	mailbox := &fakeMailbox{}
	// an hour-long interval: only the startup tick can fire
	w := New(mailbox, &fakeReconciler{}, engine.NewLedger(time.Hour), nil, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return mailbox.fetchCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	w := New(&fakeMailbox{}, &fakeReconciler{}, engine.NewLedger(time.Hour), nil, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
