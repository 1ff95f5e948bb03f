package engine

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownRemitter marks a notification whose sender name could not be parsed.
const UnknownRemitter = "unknown"

// PaymentNotification is the structured form of one bank notification email.
// It lives for a single reconciliation attempt and is never persisted.
type PaymentNotification struct {
	Amount       decimal.Decimal
	ReferenceID  string // empty when the bank omitted a reference
	RemitterName string // UnknownRemitter when unparseable
	MessageID    string
}

var (
	amountRe    = regexp.MustCompile(`S\$([\d,]+\.\d{2})`)
	referenceRe = regexp.MustCompile(`(?i)reference\s+(\d+)|notes:\s*([A-Za-z0-9]+)`)
	remitterRe  = regexp.MustCompile(`(?i)from:\s*([A-Za-z ]+)`)
)

// Extract parses a message body into a PaymentNotification. The amount is
// mandatory: a body without the bank's currency pattern is not a payment
// notification and yields nil. Reference and remitter name are best-effort.
func Extract(messageID, body string) *PaymentNotification {
	am := amountRe.FindStringSubmatch(body)
	if am == nil {
		return nil
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(am[1], ",", ""))
	if err != nil {
		return nil
	}

	n := &PaymentNotification{
		Amount:       amount,
		RemitterName: UnknownRemitter,
		MessageID:    messageID,
	}
	if rm := referenceRe.FindStringSubmatch(body); rm != nil {
		// either alternative may fire, first match wins
		if rm[1] != "" {
			n.ReferenceID = rm[1]
		} else {
			n.ReferenceID = rm[2]
		}
	}
	if nm := remitterRe.FindStringSubmatch(body); nm != nil {
		if name := strings.TrimSpace(nm[1]); name != "" {
			n.RemitterName = name
		}
	}
	return n
}
