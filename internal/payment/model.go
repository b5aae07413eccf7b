package payment

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/blake2b"
)

const (
	DefaultPaymentURL  = "https://secure.nochex.com/default.aspx"
	DefaultAPCURL      = "https://www.nochex.com/apcnet/apc.aspx"
	DefaultCallbackURL = "https://secure.nochex.com/callback/callback.aspx"
)

// Settings is the merchant configuration of the Nochex method.
type Settings struct {
	Enabled              bool
	Title                string
	Description          string
	MerchantID           string
	TestMode             bool
	HideBillingDetails   bool
	SendItemizedDetails  bool
	SeparateShippingLine bool
	CallbackMode         bool
	DebugMode            bool
}

// Configured reports whether a merchant id is set.
func (s Settings) Configured() bool {
	return strings.TrimSpace(s.MerchantID) != ""
}

func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.MerchantID,
			validation.When(s.Enabled, validation.Required.Error("is required when the method is enabled")),
			validation.Length(0, 255),
		),
		validation.Field(&s.Title, validation.Length(0, 100)),
	)
}

// Endpoints are the gateway URLs. All of them must be https.
type Endpoints struct {
	Payment  string
	APC      string
	Callback string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Payment:  DefaultPaymentURL,
		APC:      DefaultAPCURL,
		Callback: DefaultCallbackURL,
	}
}

// Verification returns the endpoint a notification of channel c is echoed to.
func (e Endpoints) Verification(c Channel) string {
	if c == ChannelCallback {
		return e.Callback
	}
	return e.APC
}

func (e Endpoints) Validate() error {
	httpsOnly := validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if !strings.HasPrefix(strings.ToLower(s), "https://") {
			return fmt.Errorf("must use https")
		}
		return nil
	})

	return validation.ValidateStruct(&e,
		validation.Field(&e.Payment, validation.Required, is.URL, httpsOnly),
		validation.Field(&e.APC, validation.Required, is.URL, httpsOnly),
		validation.Field(&e.Callback, validation.Required, is.URL, httpsOnly),
	)
}

// Channel identifies how a notification reached us.
type Channel int

const (
	// ChannelAPC is the server-to-server push.
	ChannelAPC Channel = iota
	// ChannelCallback is the callback-mode notification, flagged by optional_2.
	ChannelCallback
)

func (c Channel) String() string {
	if c == ChannelCallback {
		return "Callback"
	}
	return "APC"
}

// LogTag prefixes debug messages written for the channel.
func (c Channel) LogTag() string {
	if c == ChannelCallback {
		return "CALLBACK"
	}
	return "ORDER"
}

type Mode string

const (
	ModeLive Mode = "live"
	ModeTest Mode = "test"
)

// Notification is a gateway notification. Every field is attacker
// controlled until verified.
type Notification struct {
	Channel           Channel
	RemoteIP          string
	Fields            url.Values
	OrderRef          string
	Token             string
	TransactionID     string
	TransactionStatus string
	Status            string
	ReceivedAt        time.Time
}

// Mode reports the declared transaction mode. Callbacks declare it with
// transaction_status=100, APC with status=test.
func (n *Notification) Mode() Mode {
	if n.TransactionStatus == TestTransactionFlag || strings.EqualFold(n.Status, string(ModeTest)) {
		return ModeTest
	}
	return ModeLive
}

// Fingerprint identifies a delivery by channel and exact field content.
func (n *Notification) Fingerprint() string {
	sum := blake2b.Sum256([]byte(n.Channel.String() + "\n" + n.Fields.Encode()))
	return hex.EncodeToString(sum[:])
}

// VerificationOutcome is the result of echoing a notification back to the
// gateway. Err is informational; it never changes Authorized.
type VerificationOutcome struct {
	Channel    Channel
	Authorized bool
	Mode       Mode
	StatusCode int
	Response   string
	Trace      string
	Err        error
}

// Message renders the outcome the way it is written to the audit log.
func (o VerificationOutcome) Message() string {
	if o.Authorized {
		return fmt.Sprintf("%s was AUTHORISED. This was a %s transaction.", o.Channel, o.Mode)
	}
	return fmt.Sprintf("%s was not AUTHORISED.\r\n\r\n%s", o.Channel, o.Trace)
}
