package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/pkg/utils"
)

// Placeholders for missing order fields.
const (
	missingHe = "לא זמין"
	missingEn = "N/A"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

type itemView struct {
	Name      string
	Color     string
	Quantity  int
	Price     string
	LineTotal string
}

type orderView struct {
	FormID       string
	Status       string
	Amount       string
	Currency     string
	CustomerName string
	Email        string
	Phone        string
	Address      string
	Notes        string
	Dedication   string
	CouponCode   string
	DocumentID   string
	PaymentID    string
	Purchased    string
	ReceivedAt   string
	Items        []itemView
	MissingHe    string
	MissingEn    string
}

var htmlTmpl = htmltemplate.Must(htmltemplate.New("order.html").Parse(`<!DOCTYPE html>
<html lang="he"><head><meta charset="utf-8"><title>{{.FormID}}</title></head>
<body style="font-family:Arial,sans-serif;">
<div dir="rtl" style="text-align:right;">
<h2>התקבלה הזמנה חדשה</h2>
<p><strong>מספר הזמנה:</strong> {{.FormID}}</p>
<p><strong>סטטוס:</strong> {{.Status}}</p>
<p><strong>סכום:</strong> {{.Currency}}{{.Amount}}</p>
<h3>פרטי לקוח</h3>
<p><strong>שם:</strong> {{.CustomerName}}<br>
<strong>אימייל:</strong> {{.Email}}<br>
<strong>טלפון:</strong> {{.Phone}}<br>
<strong>כתובת:</strong> {{.Address}}</p>
{{if .Dedication}}<p><strong>הקדשה:</strong> {{.Dedication}}</p>{{end}}
{{if .CouponCode}}<p><strong>קופון:</strong> {{.CouponCode}}</p>{{end}}
{{if .Notes}}<p><strong>הערות:</strong> {{.Notes}}</p>{{end}}
<h3>פריטים</h3>
{{if .Items}}<table border="1" cellpadding="6" style="border-collapse:collapse;">
<tr><th>מוצר</th><th>צבע</th><th>כמות</th><th>מחיר</th><th>סה"כ</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td>{{.Color}}</td><td>{{.Quantity}}</td><td>{{$.Currency}}{{.Price}}</td><td>{{$.Currency}}{{.LineTotal}}</td></tr>
{{end}}</table>{{else}}<p>{{.MissingHe}}</p>{{end}}
</div>
<hr>
<div dir="ltr" style="text-align:left;">
<h2>New order received</h2>
<p><strong>Order:</strong> {{.FormID}} &middot; <strong>Status:</strong> {{.Status}} &middot; <strong>Amount:</strong> {{.Currency}}{{.Amount}}</p>
<p><strong>Customer:</strong> {{.CustomerName}}, {{.Email}}, {{.Phone}}</p>
<p><strong>Document:</strong> {{.DocumentID}} &middot; <strong>Payment:</strong> {{.PaymentID}}</p>
<p><strong>Purchased:</strong> {{.Purchased}} &middot; <strong>Received:</strong> {{.ReceivedAt}}</p>
</div>
</body></html>
`))

var textTmpl = texttemplate.Must(texttemplate.New("order.txt").Parse(`הזמנה חדשה / New order
מספר הזמנה / Order: {{.FormID}}
סטטוס / Status: {{.Status}}
סכום / Amount: {{.Currency}}{{.Amount}}
לקוח / Customer: {{.CustomerName}} | {{.Email}} | {{.Phone}}
כתובת / Address: {{.Address}}
{{if .Dedication}}הקדשה / Dedication: {{.Dedication}}
{{end}}{{if .CouponCode}}קופון / Coupon: {{.CouponCode}}
{{end}}
פריטים / Items:
{{range .Items}}- {{.Name}}{{if .Color}} ({{.Color}}){{end}} x{{.Quantity}} = {{$.Currency}}{{.LineTotal}}
{{else}}{{.MissingHe}} / {{.MissingEn}}
{{end}}
Document: {{.DocumentID}}  Payment: {{.PaymentID}}
Received: {{.ReceivedAt}}
`))

// Render builds the bilingual merchant notification for an order. Missing fields render as
// placeholders; amount and status are interpolated as given.
func Render(o models.Order) (Message, error) {
	v := buildView(o.Details())
	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, v); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	if err := textTmpl.Execute(&textBuf, v); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	return Message{
		Subject: fmt.Sprintf("הזמנה חדשה / New Order #%s - %s%s", v.FormID, v.Currency, v.Amount),
		HTML:    htmlBuf.String(),
		Text:    textBuf.String(),
	}, nil
}

func buildView(d models.OrderDetails) orderView {
	v := orderView{
		FormID:       orNA(d.FormID),
		Status:       orNA(d.Status),
		Amount:       formatAmountText(d.AmountText()),
		Currency:     currencySymbol(d.Currency),
		CustomerName: orNA(d.CustomerInfo.Name()),
		Email:        orNA(d.CustomerInfo.Email),
		Phone:        orNA(d.CustomerInfo.Phone),
		Address:      orNA(joinNonEmpty(", ", d.CustomerInfo.Address, d.CustomerInfo.City, d.CustomerInfo.ZipCode)),
		Notes:        d.CustomerInfo.Notes,
		Dedication:   firstNonEmpty(d.Dedication, d.CustomerInfo.Dedication),
		CouponCode:   d.CouponCode,
		DocumentID:   orNA(d.DocumentID),
		PaymentID:    orNA(d.PaymentID),
		Purchased:    orNA(d.PurchaseTimestamp),
		ReceivedAt:   orNA(d.ReceivedAt),
		MissingHe:    missingHe,
		MissingEn:    missingEn,
	}
	for _, it := range d.ItemList() {
		name := firstNonEmpty(it.Name, it.NameEn)
		iv := itemView{
			Name:      orNA(name),
			Quantity:  it.Quantity,
			Price:     utils.FormatAmount(it.Price),
			LineTotal: utils.FormatAmount(it.Price * float64(it.Quantity)),
		}
		if it.SelectedColor != nil {
			iv.Color = it.SelectedColor.Name
		}
		v.Items = append(v.Items, iv)
	}
	return v
}

func formatAmountText(s string) string {
	if s == "" {
		return missingEn
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return utils.FormatAmount(f)
	}
	return s
}

func currencySymbol(code string) string {
	switch strings.ToUpper(code) {
	case "", "ILS", "NIS":
		return "₪"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	default:
		return code + " "
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return missingEn
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, vals ...string) string {
	var parts []string
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}
