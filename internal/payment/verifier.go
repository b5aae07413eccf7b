package payment

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"nochex-be/internal/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultVerifyTimeout = 15 * time.Second
	maxRedirects         = 5

	// the only meaningful reply is the ten byte literal
	maxResponseBytes = 4 << 10
)

// httpsOnlyRedirects refuses any redirect hop that leaves https.
var httpsOnlyRedirects = resty.RedirectPolicyFunc(func(req *http.Request, _ []*http.Request) error {
	if req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to %s refused: verification must stay on https", req.URL.Scheme)
	}
	return nil
})

// NochexVerifier echoes notifications back to the gateway over HTTPS and
// trusts only the literal AUTHORISED reply. Certificate verification is
// always on.
type NochexVerifier struct {
	client     *resty.Client
	endpoints  Endpoints
	timeout    time.Duration
	retries    int
	httpClient *http.Client
}

type VerifierOption func(*NochexVerifier)

// WithHTTPClient sends verification requests through hc, e.g. one carrying a
// private root CA pool.
func WithHTTPClient(hc *http.Client) VerifierOption {
	return func(v *NochexVerifier) {
		v.httpClient = hc
	}
}

func WithRetries(n int) VerifierOption {
	return func(v *NochexVerifier) {
		if n >= 0 {
			v.retries = n
		}
	}
}

func NewVerifier(endpoints Endpoints, timeout time.Duration, opts ...VerifierOption) *NochexVerifier {
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}

	v := &NochexVerifier{
		endpoints: endpoints,
		timeout:   timeout,
	}
	for _, opt := range opts {
		opt(v)
	}

	var client *resty.Client
	if v.httpClient != nil {
		client = resty.NewWithClient(v.httpClient)
	} else {
		client = resty.New()
	}

	v.client = client.
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects), httpsOnlyRedirects).
		SetResponseBodyLimit(maxResponseBytes).
		SetRetryCount(v.retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("User-Agent", "nochex-be/1.0")

	return v
}

// Verify never returns an error: transport failures, timeouts and non-2xx
// replies all produce an unauthorized outcome with Err set.
func (v *NochexVerifier) Verify(ctx context.Context, n *Notification) VerificationOutcome {
	endpoint := v.endpoints.Verification(n.Channel)
	log := logger.FromCtx(ctx).With(
		zap.String("channel", n.Channel.String()),
		zap.String("order_ref", n.OrderRef),
		zap.String("endpoint", endpoint),
	)

	outcome := VerificationOutcome{
		Channel: n.Channel,
		Mode:    n.Mode(),
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	resp, err := v.client.R().
		SetContext(ctx).
		SetFormDataFromValues(n.Fields).
		Post(endpoint)
	if err != nil {
		log.Warn("nochex verification request failed", zap.Error(err))
		outcome.Err = fmt.Errorf("%w: %v", ErrVerificationTransport, err)
		outcome.Trace = BuildTrace(n, "")
		return outcome
	}

	body := string(resp.Body())
	outcome.StatusCode = resp.StatusCode()
	outcome.Response = body
	outcome.Trace = BuildTrace(n, body)

	if !resp.IsSuccess() {
		log.Warn("nochex verification returned non-2xx", zap.Int("status", resp.StatusCode()))
		outcome.Err = fmt.Errorf("%w: unexpected status %d", ErrVerificationTransport, resp.StatusCode())
		return outcome
	}

	outcome.Authorized = body == AuthorisedResponse

	log.Info("nochex verification completed",
		zap.Bool("authorized", outcome.Authorized),
		zap.String("mode", string(outcome.Mode)),
	)

	return outcome
}

// BuildTrace renders the caller IP, the echoed fields and the raw reply.
func BuildTrace(n *Notification, response string) string {
	var b strings.Builder
	b.WriteString("IP -> " + n.RemoteIP + "\r\n\r\nPOST DATA:\r\n")

	keys := make([]string, 0, len(n.Fields))
	for k := range n.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, val := range n.Fields[k] {
			b.WriteString(k + " -> " + val + "\r\n")
		}
	}

	b.WriteString("\r\nRESPONSE:\r\n" + response)
	return b.String()
}
