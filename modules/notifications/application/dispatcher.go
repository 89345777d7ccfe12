// Package application sends order notifications.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rai/storefront-payments/modules/notifications/domain"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
)

// Dispatcher sends the customer receipt and the admin alert for a paid order.
type Dispatcher struct {
	mailer       domain.Mailer
	storeName    string
	adminAddress string
	logger       *slog.Logger
}

func NewDispatcher(mailer domain.Mailer, storeName, adminAddress string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if adminAddress == "" {
		logger.Error("mail.admin_address is not set; admin order alerts are disabled")
	}
	return &Dispatcher{mailer: mailer, storeName: storeName, adminAddress: adminAddress, logger: logger}
}

// Send delivers both messages concurrently. One failing does not stop the
// other; every failure is returned, joined.
func (d *Dispatcher) Send(ctx context.Context, r contracts.OrderReceipt) error {
	view := newReceiptView(d.storeName, r)

	jobs := []messageJob{
		{"customer receipt", "customer_receipt", r.Customer.Email, fmt.Sprintf("Your %s order %s", d.storeName, shortID(r.OrderID))},
	}
	if d.adminAddress != "" {
		jobs = append(jobs, messageJob{
			"admin alert", "admin_alert", d.adminAddress, fmt.Sprintf("New order %s: %s", shortID(r.OrderID), r.Total.Format()),
		})
	}

	errs := make([]error, len(jobs))
	var g errgroup.Group
	for i, job := range jobs {
		g.Go(func() error {
			msg, err := render(job.template, job.to, job.subject, view)
			if err == nil {
				err = d.mailer.Send(ctx, msg)
			}
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", job.kind, err)
			}
			return errs[i]
		})
	}
	// Wait reports only the first failure; the join keeps them all.
	if err := g.Wait(); err != nil {
		return errors.Join(errs...)
	}
	d.logger.Info("order notifications sent",
		slog.String("order_id", r.OrderID),
		slog.Bool("invoice_attached", r.InvoiceURL != ""),
	)
	return nil
}

type messageJob struct {
	kind, template, to, subject string
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
