package payment

// Outbound form fields, in the order the gateway receives them.
const (
	FieldMerchantID         = "merchant_id"
	FieldAmount             = "amount"
	FieldPostage            = "postage"
	FieldDescription        = "description"
	FieldItemCollection     = "xml_item_collection"
	FieldOrderID            = "order_id"
	FieldBillingFullname    = "billing_fullname"
	FieldBillingAddress     = "billing_address"
	FieldBillingCity        = "billing_city"
	FieldBillingPostcode    = "billing_postcode"
	FieldDeliveryFullname   = "delivery_fullname"
	FieldDeliveryAddress    = "delivery_address"
	FieldDeliveryCity       = "delivery_city"
	FieldDeliveryPostcode   = "delivery_postcode"
	FieldEmailAddress       = "email_address"
	FieldCustomerPhone      = "customer_phone_number"
	FieldSuccessURL         = "success_url"
	FieldTestSuccessURL     = "test_success_url"
	FieldCancelURL          = "cancel_url"
	FieldCallbackURL        = "callback_url"
	FieldTestTransaction    = "test_transaction"
	FieldHideBillingDetails = "hide_billing_details"
	FieldOptional1          = "optional_1"
	FieldOptional2          = "optional_2"
)

// Inbound-only notification fields.
const (
	FieldCustom            = "custom"
	FieldTransactionID     = "transaction_id"
	FieldTransactionStatus = "transaction_status"
	FieldStatus            = "status"
)

const (
	TestTransactionFlag = "100"
	HideBillingFlag     = "true"
	CallbackEnabledFlag = "Enabled"
	AuthorisedResponse  = "AUTHORISED"

	// ChannelQueryParam marks requests hitting the notification endpoint.
	ChannelQueryParam = "acapc"
	ChannelQueryValue = "1"
)
