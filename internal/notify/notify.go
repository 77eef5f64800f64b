package notify

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// InvoiceEvent is emitted after a transaction commits for a customer with an
// email address. Delivery is fire-and-forget: it never blocks or rolls back
// the commit that produced it.
type InvoiceEvent struct {
	InvoiceNo     string
	CustomerName  string
	CustomerEmail string
	Total         decimal.Decimal
}

type Notifier interface {
	SendInvoice(ctx context.Context, ev InvoiceEvent)
}

// LogNotifier records the event instead of delivering mail; the real dispatch
// lives in an external service.
type LogNotifier struct {
	Log *logrus.Logger
}

func (n *LogNotifier) SendInvoice(_ context.Context, ev InvoiceEvent) {
	n.Log.WithFields(logrus.Fields{
		"invoice_no": ev.InvoiceNo,
		"customer":   ev.CustomerName,
		"email":      ev.CustomerEmail,
		"total":      ev.Total.String(),
	}).Info("send invoice requested")
}
