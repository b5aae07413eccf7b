package payment

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"nochex-be/internal/logger"
	"nochex-be/internal/order"

	"go.uber.org/zap"
)

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OutboundRequest is the form the buyer's browser posts to the gateway.
type OutboundRequest struct {
	Action string  `json:"action"`
	Fields []Field `json:"fields"`
	Items  []Item  `json:"items"`
}

// Get returns the value of the named field, or "" when it is absent.
func (r *OutboundRequest) Get(name string) string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func (r *OutboundRequest) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

func (r *OutboundRequest) Values() url.Values {
	v := make(url.Values, len(r.Fields))
	for _, f := range r.Fields {
		v.Add(f.Name, f.Value)
	}
	return v
}

// String renders the request for debug logging.
func (r *OutboundRequest) String() string {
	var b strings.Builder
	b.WriteString("POST " + r.Action + "\r\n")
	for _, f := range r.Fields {
		b.WriteString(f.Name + " -> " + f.Value + "\r\n")
	}
	return b.String()
}

type RequestBuilder struct {
	settings  Settings
	endpoint  string
	links     LinkProvider
	callbacks CallbackURLProvider
	audit     Warner
}

func NewRequestBuilder(settings Settings, endpoint string, links LinkProvider, callbacks CallbackURLProvider, audit Warner) *RequestBuilder {
	if endpoint == "" {
		endpoint = DefaultPaymentURL
	}
	return &RequestBuilder{
		settings:  settings,
		endpoint:  endpoint,
		links:     links,
		callbacks: callbacks,
		audit:     audit,
	}
}

func (b *RequestBuilder) Settings() Settings {
	return b.settings
}

// Build assembles the redirect form for o. Nothing is built for a method
// without a merchant id.
func (b *RequestBuilder) Build(ctx context.Context, o *order.Order) (*OutboundRequest, error) {
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", o.ID), zap.String("order_number", o.Number))

	if !b.settings.Enabled {
		return nil, ErrMethodDisabled
	}
	if !b.settings.Configured() {
		log.Error("nochex request not built, merchant id missing")
		return nil, &ConfigurationError{Setting: "merchant_id", Err: ErrMerchantNotConfigured}
	}

	amounts := CalculateAmounts(o, b.settings.SeparateShippingLine)

	var (
		items       []Item
		itemXML     string
		description string
	)
	if b.settings.SendItemizedDetails {
		items = BuildItems(o.Items)
		encoded, err := EncodeItemCollection(items)
		if err != nil {
			return nil, err
		}
		itemXML = encoded
		description = "Payment for " + o.Number
	} else {
		items = []Item{}
		description = FlattenDescription(o.Items)
	}

	var testTransaction, hideBilling, optional2 string
	if b.settings.TestMode {
		testTransaction = TestTransactionFlag
	}
	if b.settings.HideBillingDetails {
		hideBilling = HideBillingFlag
	}
	if b.settings.CallbackMode {
		optional2 = CallbackEnabledFlag
	}

	thankYou := b.links.ThankYouLink(o)

	req := &OutboundRequest{
		Action: b.endpoint,
		Items:  items,
		Fields: []Field{
			{FieldMerchantID, b.settings.MerchantID},
			{FieldAmount, amounts.ChargeField()},
			{FieldPostage, amounts.PostageField()},
			{FieldDescription, description},
			{FieldItemCollection, itemXML},
			{FieldOrderID, o.Number},
			{FieldBillingFullname, o.Billing.FullName()},
			{FieldBillingAddress, o.Billing.Street},
			{FieldBillingCity, o.Billing.City},
			{FieldBillingPostcode, o.Billing.Postcode},
			{FieldDeliveryFullname, o.Shipping.FullName()},
			{FieldDeliveryAddress, o.Shipping.Street},
			{FieldDeliveryCity, o.Shipping.City},
			{FieldDeliveryPostcode, o.Shipping.Postcode},
			{FieldEmailAddress, o.Billing.Email},
			{FieldCustomerPhone, o.Billing.Phone},
			{FieldSuccessURL, thankYou},
			{FieldTestSuccessURL, thankYou},
			{FieldCancelURL, b.links.CancelLink(o)},
			{FieldCallbackURL, withChannelMarker(b.callbacks.CallbackURL(MethodID))},
			{FieldTestTransaction, testTransaction},
			{FieldHideBillingDetails, hideBilling},
			{FieldOptional1, strconv.FormatUint(uint64(o.ID), 10)},
			{FieldOptional2, optional2},
		},
	}

	if b.settings.DebugMode && b.audit != nil {
		b.audit.Warn("Nochex Payment Form\r\n" + req.String())
	}

	log.Info("nochex payment request built",
		zap.String("amount", amounts.ChargeField()),
		zap.Bool("test_mode", b.settings.TestMode),
	)

	return req, nil
}

// withChannelMarker adds acapc=1 so notifications can be told apart from
// other traffic on the endpoint.
func withChannelMarker(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		return raw + sep + ChannelQueryParam + "=" + ChannelQueryValue
	}

	q := u.Query()
	q.Set(ChannelQueryParam, ChannelQueryValue)
	u.RawQuery = q.Encode()
	return u.String()
}
