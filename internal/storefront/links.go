package storefront

import (
	"strconv"
	"strings"

	"nochex-be/internal/order"
)

// Links builds buyer-facing storefront URLs from templates. The placeholders
// {order_id} and {order_number} are replaced with the order's values.
type Links struct {
	ThankYouTemplate string
	CancelTemplate   string
	APIBaseURL       string
}

func NewLinks(thankYou, cancel, apiBase string) *Links {
	return &Links{
		ThankYouTemplate: thankYou,
		CancelTemplate:   cancel,
		APIBaseURL:       strings.TrimRight(apiBase, "/"),
	}
}

func (l *Links) ThankYouLink(o *order.Order) string {
	return expand(l.ThankYouTemplate, o)
}

func (l *Links) CancelLink(o *order.Order) string {
	return expand(l.CancelTemplate, o)
}

// CallbackURL is the public notification endpoint of a payment method.
func (l *Links) CallbackURL(methodID string) string {
	return l.APIBaseURL + "/api/" + methodID
}

func expand(tmpl string, o *order.Order) string {
	r := strings.NewReplacer(
		"{order_id}", strconv.FormatUint(uint64(o.ID), 10),
		"{order_number}", o.Number,
	)
	return r.Replace(tmpl)
}
