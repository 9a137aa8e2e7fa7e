package notification

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type mailSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// EmailChannel mails role notifications (the finance team) through SendGrid.
// Wallet owners are reached by push and events; their addresses live outside
// the ledger, so owner recipients are skipped here.
type EmailChannel struct {
	client      mailSender
	fromEmail   string
	fromName    string
	financeTo   string
	financeName string
}

func NewEmailChannel(apiKey, fromEmail, fromName, financeEmail, financeName string) *EmailChannel {
	return newEmailChannel(sendgrid.NewSendClient(apiKey), fromEmail, fromName, financeEmail, financeName)
}

func newEmailChannel(client mailSender, fromEmail, fromName, financeEmail, financeName string) *EmailChannel {
	return &EmailChannel{
		client:      client,
		fromEmail:   fromEmail,
		fromName:    fromName,
		financeTo:   financeEmail,
		financeName: financeName,
	}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, recipient domain.Recipient, n domain.Notification) error {
	if recipient.Role != "finance" || c.financeTo == "" {
		return nil
	}

	from := mail.NewEmail(c.fromName, c.fromEmail)
	to := mail.NewEmail(c.financeName, c.financeTo)
	subject := fmt.Sprintf("[%s] %s", n.Type, n.Title)
	message := mail.NewSingleEmail(from, subject, to, plainBody(n), htmlBody(n))

	logger.ExternalServiceCall("sendgrid", "Send", "type", n.Type)
	response, err := c.client.Send(message)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
	} else if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "Send", err, "type", n.Type)
	return err
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plainBody(n domain.Notification) string {
	var b strings.Builder
	b.WriteString(n.Message)
	b.WriteString("\n\n")
	for _, k := range sortedKeys(n.Attributes) {
		fmt.Fprintf(&b, "%s: %s\n", k, n.Attributes[k])
	}
	return b.String()
}

func htmlBody(n domain.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><body><h2>%s</h2><p>%s</p>", html.EscapeString(n.Title), html.EscapeString(n.Message))
	if len(n.Attributes) > 0 {
		b.WriteString("<table>")
		for _, k := range sortedKeys(n.Attributes) {
			fmt.Fprintf(&b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>", html.EscapeString(k), html.EscapeString(n.Attributes[k]))
		}
		b.WriteString("</table>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
