package payment

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleNotification(channel Channel) *Notification {
	fields := url.Values{}
	fields.Set(FieldOrderID, "1001")
	fields.Set(FieldOptional1, "42")
	fields.Set(FieldTransactionID, "TX-1")
	fields.Set("amount", "25.00")
	if channel == ChannelCallback {
		fields.Set(FieldOptional2, CallbackEnabledFlag)
	}

	return &Notification{
		Channel:       channel,
		RemoteIP:      "203.0.113.9",
		Fields:        fields,
		OrderRef:      "1001",
		Token:         "42",
		TransactionID: "TX-1",
	}
}

// gatewayStub answers every verification request with status and body and
// records what it received.
func gatewayStub(t *testing.T, status int, body string) (*httptest.Server, *url.Values, *string) {
	t.Helper()
	var (
		received url.Values
		path     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		received = r.PostForm
		path = r.URL.Path
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &received, &path
}

func stubEndpoints(base string) Endpoints {
	return Endpoints{
		Payment:  base + "/default.aspx",
		APC:      base + "/apcnet/apc.aspx",
		Callback: base + "/callback/callback.aspx",
	}
}

func TestNochexVerifier_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("Authorised", func(t *testing.T) {
		srv, received, path := gatewayStub(t, http.StatusOK, "AUTHORISED")
		v := NewVerifier(stubEndpoints(srv.URL), time.Second)

		out := v.Verify(ctx, sampleNotification(ChannelAPC))

		assert.True(t, out.Authorized)
		assert.NoError(t, out.Err)
		assert.Equal(t, ModeLive, out.Mode)
		assert.Equal(t, "/apcnet/apc.aspx", *path)
		assert.Equal(t, "1001", received.Get(FieldOrderID))
		assert.Equal(t, "TX-1", received.Get(FieldTransactionID))
		assert.Equal(t, "25.00", received.Get("amount"))
	})

	t.Run("CallbackChannelEndpoint", func(t *testing.T) {
		srv, _, path := gatewayStub(t, http.StatusOK, "AUTHORISED")
		v := NewVerifier(stubEndpoints(srv.URL), time.Second)

		out := v.Verify(ctx, sampleNotification(ChannelCallback))

		assert.True(t, out.Authorized)
		assert.Equal(t, "/callback/callback.aspx", *path)
	})

	t.Run("RejectsAnythingButTheExactLiteral", func(t *testing.T) {
		for _, body := range []string{"DECLINED", "AUTHORISED\n", " AUTHORISED", "authorised", "", "AUTHORISED AUTHORISED"} {
			srv, _, _ := gatewayStub(t, http.StatusOK, body)
			v := NewVerifier(stubEndpoints(srv.URL), time.Second)

			out := v.Verify(ctx, sampleNotification(ChannelAPC))
			assert.False(t, out.Authorized, "body %q", body)
			assert.Equal(t, body, out.Response)
		}
	})

	t.Run("Non2xx", func(t *testing.T) {
		srv, _, _ := gatewayStub(t, http.StatusInternalServerError, "AUTHORISED")
		v := NewVerifier(stubEndpoints(srv.URL), time.Second)

		out := v.Verify(ctx, sampleNotification(ChannelAPC))
		assert.False(t, out.Authorized)
		assert.ErrorIs(t, out.Err, ErrVerificationTransport)
		assert.Equal(t, http.StatusInternalServerError, out.StatusCode)
	})

	t.Run("TransportError", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		v := NewVerifier(stubEndpoints(base), time.Second)
		out := v.Verify(ctx, sampleNotification(ChannelAPC))

		assert.False(t, out.Authorized)
		assert.ErrorIs(t, out.Err, ErrVerificationTransport)
		assert.Contains(t, out.Trace, "IP -> 203.0.113.9")
	})

	t.Run("Timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			_, _ = io.WriteString(w, "AUTHORISED")
		}))
		defer srv.Close()

		v := NewVerifier(stubEndpoints(srv.URL), 50*time.Millisecond)
		start := time.Now()
		out := v.Verify(ctx, sampleNotification(ChannelAPC))

		assert.False(t, out.Authorized)
		assert.ErrorIs(t, out.Err, ErrVerificationTransport)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("UntrustedCertificate", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "AUTHORISED")
		}))
		defer srv.Close()

		v := NewVerifier(stubEndpoints(srv.URL), time.Second)
		out := v.Verify(ctx, sampleNotification(ChannelAPC))

		assert.False(t, out.Authorized)
		assert.ErrorIs(t, out.Err, ErrVerificationTransport)
	})

	t.Run("TrustedCertificate", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "AUTHORISED")
		}))
		defer srv.Close()

		v := NewVerifier(stubEndpoints(srv.URL), time.Second, WithHTTPClient(srv.Client()))
		out := v.Verify(ctx, sampleNotification(ChannelAPC))

		assert.True(t, out.Authorized)
	})

	t.Run("FollowsRedirect", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/apcnet/apc.aspx", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/final", http.StatusFound)
		})
		mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "AUTHORISED")
		})
		srv := httptest.NewTLSServer(mux)
		defer srv.Close()

		v := NewVerifier(stubEndpoints(srv.URL), time.Second, WithHTTPClient(srv.Client()))
		out := v.Verify(ctx, sampleNotification(ChannelAPC))
		assert.True(t, out.Authorized)
	})

	t.Run("RedirectToPlainHTTPRejected", func(t *testing.T) {
		var plainHits int32
		plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&plainHits, 1)
			_, _ = io.WriteString(w, "AUTHORISED")
		}))
		defer plain.Close()

		secure := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, plain.URL+"/apcnet/apc.aspx", http.StatusTemporaryRedirect)
		}))
		defer secure.Close()

		v := NewVerifier(stubEndpoints(secure.URL), time.Second, WithHTTPClient(secure.Client()), WithRetries(0))
		out := v.Verify(ctx, sampleNotification(ChannelAPC))

		assert.False(t, out.Authorized)
		assert.ErrorIs(t, out.Err, ErrVerificationTransport)
		assert.Contains(t, out.Err.Error(), "redirect to http refused")
		assert.Zero(t, atomic.LoadInt32(&plainHits))
	})

	t.Run("OversizedResponse", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "AUTHORISED"+strings.Repeat("x", 64<<10))
		}))
		defer srv.Close()

		v := NewVerifier(stubEndpoints(srv.URL), time.Second, WithHTTPClient(srv.Client()), WithRetries(0))
		out := v.Verify(ctx, sampleNotification(ChannelAPC))

		assert.False(t, out.Authorized)
		assert.ErrorIs(t, out.Err, ErrVerificationTransport)
		assert.Empty(t, out.Response)
	})
}

func TestNochexVerifier_TestMode(t *testing.T) {
	srv, _, _ := gatewayStub(t, http.StatusOK, "AUTHORISED")
	v := NewVerifier(stubEndpoints(srv.URL), time.Second)

	n := sampleNotification(ChannelCallback)
	n.TransactionStatus = TestTransactionFlag
	n.Fields.Set(FieldTransactionStatus, TestTransactionFlag)

	out := v.Verify(context.Background(), n)
	assert.True(t, out.Authorized)
	assert.Equal(t, ModeTest, out.Mode)
	assert.Equal(t, "Callback was AUTHORISED. This was a test transaction.", out.Message())
}

func TestBuildTrace(t *testing.T) {
	n := &Notification{
		RemoteIP: "198.51.100.1",
		Fields:   url.Values{"b": {"2"}, "a": {"1"}},
	}

	assert.Equal(t,
		"IP -> 198.51.100.1\r\n\r\nPOST DATA:\r\na -> 1\r\nb -> 2\r\n\r\nRESPONSE:\r\nDECLINED",
		BuildTrace(n, "DECLINED"))
}
