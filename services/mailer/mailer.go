package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/gamevault/recon"
	"github.com/gamevault/recon/engine"
)

type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Sender     string // e.g. "GameVault <noreply@gameuniverse.co>"
	AdminEmail string // on-call address for escalation alerts
}

// Mailer renders and sends transactional email. Sends run on their own
// goroutine and only ever log a failure, they never block or fail the
// reconciliation that triggered them.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
	l      *zap.Logger
}

func New(cfg Config) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		l:      zap.L().Named("mailer"),
	}
}

// SendOrderUpdate emails the customer about a status change. Statuses the
// customer does not care about are ignored.
func (m *Mailer) SendOrderUpdate(o *recon.Order) {
	if o.CustomerEmail == nil || !strings.Contains(*o.CustomerEmail, "@") {
		m.l.Warn("Skipping order email, invalid address.", zap.String("order_id", o.ID))
		return
	}

	shortID := o.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	var subject, display, message string
	switch o.Status {
	case recon.OrderStatusProcessing:
		subject = "Payment Received - " + shortID
		display = "PROCESSING"
		message = "We have received your payment and are delivering your items now. This usually takes 1-5 minutes."
	case recon.OrderStatusManualReview:
		subject = "Order Under Review - " + shortID
		display = "UNDER REVIEW"
		message = "Your order requires manual verification. Our team has been notified and will process it shortly."
	case recon.OrderStatusCompleted:
		subject = "Order Delivered! - " + shortID
		display = "DELIVERED"
		message = "Your top-up has been successfully delivered to your account. Happy Gaming!"
	case recon.OrderStatusFailed, recon.OrderStatusCancelled:
		subject = "Order Failed - " + shortID
		display = "FAILED"
		message = "We could not process your order. If you were charged, a refund will be processed automatically."
	default:
		return
	}

	body, err := renderOrderUpdate(o, display, message)
	if err != nil {
		m.l.Error("Failed render order email.", zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	go m.send(*o.CustomerEmail, subject, "text/html", body)
}

// SendAlert emails the ambiguous-match details to the operations address.
func (m *Mailer) SendAlert(alert engine.Alert) {
	if m.cfg.AdminEmail == "" {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Ambiguous payment: S$%s from %q matched %d verifying orders.\n\n",
		alert.Amount.StringFixed(2), alert.RemitterName, len(alert.Orders))
	for _, o := range alert.Orders {
		fmt.Fprintf(&b, "  - %s (remitter %q)\n", o.ID, o.RemitterName)
	}
	if !alert.NameFiltered {
		b.WriteString("\nName evidence did not narrow the candidates (amount-only match).\n")
	}
	b.WriteString("\nAll candidates were moved to manual_review.\n")

	go m.send(m.cfg.AdminEmail, "Payment needs manual review", "text/plain", b.String())
}

func (m *Mailer) send(to, subject, contentType, body string) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody(contentType, body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.l.Error("Failed send email.",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}
	m.l.Info("Email sent.", zap.String("to", to), zap.String("subject", subject))
}

type orderUpdateData struct {
	CustomerName  string
	StatusClass   string
	StatusDisplay string
	OrderID       string
	GameName      string
	ProductName   string
	Amount        string
	Message       string
	Year          int
}

func renderOrderUpdate(o *recon.Order, display, message string) (string, error) {
	name := "Gamer"
	if o.CustomerName != nil && *o.CustomerName != "" {
		name = *o.CustomerName
	}
	var buf bytes.Buffer
	err := orderUpdateTmpl.Execute(&buf, orderUpdateData{
		CustomerName:  name,
		StatusClass:   string(o.Status),
		StatusDisplay: display,
		OrderID:       o.ID,
		GameName:      o.GameName,
		ProductName:   o.ProductName,
		Amount:        o.TotalAmount.StringFixed(2),
		Message:       message,
		Year:          time.Now().Year(),
	})
	if err != nil {
		return "", errors.Wrap(err, "Failed execute template")
	}
	return buf.String(), nil
}

var orderUpdateTmpl = template.Must(template.New("order_update").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: sans-serif; color: #333; line-height: 1.6; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #eee; border-radius: 8px; }
  .header { background-color: #f8fafc; padding: 15px; text-align: center; border-radius: 8px 8px 0 0; }
  .header h2 { margin: 0; color: #2563eb; }
  .status-badge { display: inline-block; padding: 6px 12px; border-radius: 20px; font-weight: bold; font-size: 14px; }
  .status-processing { background-color: #dbeafe; color: #1e40af; }
  .status-manual_review { background-color: #fef3c7; color: #92400e; }
  .status-completed { background-color: #d1fae5; color: #065f46; }
  .status-failed { background-color: #fee2e2; color: #991b1b; }
  .status-cancelled { background-color: #fee2e2; color: #991b1b; }
  .footer { font-size: 12px; text-align: center; color: #888; margin-top: 20px; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h2>GameVault Order Update</h2></div>
  <div class="details">
    <p>Hi <strong>{{.CustomerName}}</strong>,</p>
    <p>Your order status has been updated.</p>
    <div style="text-align: center; margin: 20px 0;">
      <span class="status-badge status-{{.StatusClass}}">{{.StatusDisplay}}</span>
    </div>
    <table width="100%" style="border-collapse: collapse;">
      <tr><td><strong>Order ID:</strong></td><td style="text-align: right; font-family: monospace;">{{.OrderID}}</td></tr>
      <tr><td><strong>Game:</strong></td><td style="text-align: right;">{{.GameName}}</td></tr>
      <tr><td><strong>Product:</strong></td><td style="text-align: right;">{{.ProductName}}</td></tr>
      <tr><td><strong>Total:</strong></td><td style="text-align: right;">S${{.Amount}}</td></tr>
    </table>
    {{if .Message}}<div style="margin-top: 20px; padding: 15px; background-color: #f9f9f9; border-left: 4px solid #ccc;">{{.Message}}</div>{{end}}
    <p style="margin-top: 30px;">Thank you for shopping with us!</p>
  </div>
  <div class="footer">&copy; {{.Year}} GameVault. All rights reserved.</div>
</div>
</body>
</html>
`))
