package service

import (
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"

	"billing-ledger/internal/domain"
)

const (
	receiptTimeLayout = "2006-01-02 15:04"
	defaultShopName   = "RECEIPT"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`{{.Shop}}
================================
Order: {{.ID}}
Date:  {{.Date}}
{{- with .Customer}}
Customer: {{.Name}}{{if .Phone}} ({{.Phone}}){{end}}
{{- end}}
--------------------------------
{{- range .Lines}}
{{.Name}}
  {{.Quantity}} x {{.Price}} = {{.Total}}
{{- end}}
--------------------------------
TOTAL: {{.Total}}
Status: {{.Status}}
`))

type receiptLine struct {
	Name     string
	Quantity string
	Price    string
	Total    string
}

type receiptView struct {
	Shop     string
	ID       string
	Date     string
	Customer *domain.Customer
	Lines    []receiptLine
	Total    string
	Status   domain.OrderStatus
}

func renderReceipt(shop string, order domain.Order, customer *domain.Customer, loc *time.Location) (string, error) {
	if shop == "" {
		shop = defaultShopName
	}
	view := receiptView{
		Shop:     shop,
		ID:       order.ID,
		Date:     order.Date.In(loc).Format(receiptTimeLayout),
		Customer: customer,
		Lines:    make([]receiptLine, 0, len(order.Items)),
		Total:    order.TotalAmount.StringFixed(2),
		Status:   order.Status,
	}
	for _, item := range order.Items {
		view.Lines = append(view.Lines, receiptLine{
			Name:     item.Name,
			Quantity: item.Quantity.String(),
			Price:    item.Price.StringFixed(2),
			Total:    item.LineTotal().StringFixed(2),
		})
	}

	var b strings.Builder
	if err := receiptTemplate.Execute(&b, view); err != nil {
		return "", errors.Wrap(err, "render receipt")
	}
	return b.String(), nil
}
