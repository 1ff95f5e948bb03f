package mailbox

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gamevault/recon/engine/worker"
)

type Config struct {
	Addr     string // host:port, IMAP over TLS
	Username string
	Password string
	Sender   string // the bank's notification address
}

// Mailbox is the IMAP mail source. A fresh connection is dialed per tick and
// dropped afterwards; the server keeps no client state between ticks beyond
// the \Seen flags.
type Mailbox struct {
	cfg Config
	l   *zap.Logger
}

func New(cfg Config) *Mailbox {
	return &Mailbox{
		cfg: cfg,
		l:   zap.L().Named("mailbox"),
	}
}

// FetchUnseen returns the unseen messages from the bank sender in mailbox
// order. Fetching the body sets \Seen server-side, which is the primary dedup
// mechanism; the in-process ledger only guards re-delivery within a run.
func (m *Mailbox) FetchUnseen(ctx context.Context) ([]worker.Message, error) {
	c, err := client.DialTLS(m.cfg.Addr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Failed dial imap server")
	}
	defer c.Logout()
	c.Timeout = 30 * time.Second

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		return nil, errors.Wrap(err, "Failed imap login")
	}
	if _, err := c.Select("INBOX", false); err != nil {
		return nil, errors.Wrap(err, "Failed select inbox")
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Header.Add("From", m.cfg.Sender)
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, errors.Wrap(err, "Failed search unseen messages")
	}
	if len(uids) == 0 {
		m.l.Debug("No new payment emails.")
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchEnvelope, imap.FetchUid}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	var out []worker.Message
	for msg := range ch {
		if ctx.Err() != nil {
			break
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		out = append(out, worker.Message{
			ID:   messageID(msg),
			Body: plainText(body),
		})
	}
	if err := <-done; err != nil {
		return nil, errors.Wrap(err, "Failed fetch messages")
	}
	m.l.Info("Fetched unseen messages.", zap.Int("count", len(out)))
	return out, ctx.Err()
}

func messageID(msg *imap.Message) string {
	if msg.Envelope != nil && msg.Envelope.MessageId != "" {
		return msg.Envelope.MessageId
	}
	return "uid-" + strconv.FormatUint(uint64(msg.Uid), 10)
}

// plainText walks the MIME tree and returns the first text/plain part,
// falling back to the raw body when the message is not MIME at all.
func plainText(r io.Reader) string {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	for {
		p, err := mr.NextPart()
		if err != nil {
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, err := h.ContentType()
		if err != nil || ct != "text/plain" {
			continue
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			break
		}
		return string(b)
	}
	return string(raw)
}
