package application

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/rai/storefront-payments/modules/notifications/domain"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
	"github.com/rai/storefront-payments/modules/shared/types"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// receiptView is the template data shared by every message.
type receiptView struct {
	StoreName     string
	OrderID       string
	IntentID      string
	PaymentID     string
	Date          string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	AddressLines  []string
	Lines         []lineView
	Total         string
	InvoiceURL    string
}

type lineView struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice string
	LineTotal string
}

func newReceiptView(storeName string, r contracts.OrderReceipt) receiptView {
	currency := r.Total.Currency()
	lines := make([]lineView, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = lineView{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: types.FormatAmount(l.UnitPrice, currency),
			LineTotal: types.FormatAmount(l.LineTotal, currency),
		}
	}
	return receiptView{
		StoreName:     storeName,
		OrderID:       r.OrderID,
		IntentID:      r.IntentID,
		PaymentID:     r.PaymentID,
		Date:          r.PlacedAt.UTC().Format("02 Jan 2006"),
		CustomerName:  r.Customer.Name,
		CustomerEmail: r.Customer.Email,
		CustomerPhone: r.Customer.Phone,
		AddressLines:  r.Customer.AddressLines,
		Lines:         lines,
		Total:         r.Total.Format(),
		InvoiceURL:    r.InvoiceURL,
	}
}

// render executes the html and text variants of the named template.
func render(name, to, subject string, view receiptView) (domain.Message, error) {
	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html", view); err != nil {
		return domain.Message{}, fmt.Errorf("rendering %s html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".txt", view); err != nil {
		return domain.Message{}, fmt.Errorf("rendering %s text: %w", name, err)
	}
	return domain.Message{To: to, Subject: subject, HTML: html.String(), Text: text.String()}, nil
}
