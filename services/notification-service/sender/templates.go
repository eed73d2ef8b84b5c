package sender

import (
	"bytes"
	"fmt"
	"text/template"

	evt "github.com/paygate/backend/pkg/events"
)

// Message is a rendered email.
type Message struct {
	Subject string
	Body    string
}

type paymentTemplate struct {
	subject *template.Template
	body    *template.Template
}

var paymentTemplates = map[string]paymentTemplate{
	evt.StatusSucceeded: {
		subject: template.Must(template.New("succeeded_subject").Parse(
			`Payment Successful - {{.Amount}} {{.Currency}}`)),
		body: template.Must(template.New("succeeded_body").Parse(`
Your payment of {{.Amount}} {{.Currency}} has been successfully processed.

Payment ID: {{.PaymentID}}
Status: {{.Status}}

Thank you for your payment!
`)),
	},
	evt.StatusFailed: {
		subject: template.Must(template.New("failed_subject").Parse(
			`Payment Failed - {{.Amount}} {{.Currency}}`)),
		body: template.Must(template.New("failed_body").Parse(`
Your payment of {{.Amount}} {{.Currency}} could not be processed.

Payment ID: {{.PaymentID}}
Status: {{.Status}}

Please try again or contact support.
`)),
	},
}

// RenderPaymentEmail renders the customer email for a terminal payment event.
// Anything other than payment.succeeded gets the failure wording.
func RenderPaymentEmail(e evt.PaymentEvent) (Message, error) {
	tmpl := paymentTemplates[evt.StatusFailed]
	if e.EventType == evt.QueuePaymentSucceeded {
		tmpl = paymentTemplates[evt.StatusSucceeded]
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, e); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := tmpl.body.Execute(&body, e); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}
	return Message{Subject: subject.String(), Body: body.String()}, nil
}
