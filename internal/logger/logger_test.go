package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("Production", func(t *testing.T) {
		l, err := New("production")
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("Development", func(t *testing.T) {
		l, err := New("development")
		require.NoError(t, err)
		assert.NotNil(t, l)
	})
}

func TestL(t *testing.T) {
	restore := Replace(nil)
	defer restore()

	t.Setenv("APP_ENV", "test")

	l := L()
	assert.NotNil(t, l)
}

func TestContextFunctions(t *testing.T) {
	ctx := context.Background()
	reqID := "test-request-id-123"

	t.Run("WithRequestID", func(t *testing.T) {
		newCtx := WithRequestID(ctx, reqID)
		assert.Equal(t, reqID, newCtx.Value(requestIDKey))
	})

	t.Run("RequestIDFrom", func(t *testing.T) {
		assert.Equal(t, reqID, RequestIDFrom(WithRequestID(ctx, reqID)))
		assert.Equal(t, "", RequestIDFrom(ctx))
	})
}

func TestFromCtx(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	defer restore()

	t.Run("WithRequestID", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-abc-123")

		FromCtx(ctx).Info("test message with id")

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		assert.Equal(t, "req-abc-123", logs[0].ContextMap()["request_id"])
	})

	t.Run("WithoutRequestID", func(t *testing.T) {
		FromCtx(context.Background()).Info("test message without id")

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		_, ok := logs[0].ContextMap()["request_id"]
		assert.False(t, ok)
	})
}

func TestSync(t *testing.T) {
	assert.NotPanics(t, func() {
		Sync()
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, RequestIDFrom(r.Context()))
	})

	handler := RequestIDMiddleware(nextHandler)

	t.Run("Generates ID when missing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("Preserves existing ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "test-id-123")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "test-id-123", w.Header().Get(RequestIDHeader))
	})
}

func TestAudit(t *testing.T) {
	t.Run("WritesWarn", func(t *testing.T) {
		core, observed := observer.New(zapcore.DebugLevel)
		audit := NewAudit(zap.New(core))

		audit.Warn("APC was not AUTHORISED.")

		logs := observed.TakeAll()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.Equal(t, "APC was not AUTHORISED.", logs[0].Message)
		assert.Equal(t, "payment.audit", logs[0].LoggerName)
	})

	t.Run("FallsBackToGlobal", func(t *testing.T) {
		core, observed := observer.New(zapcore.DebugLevel)
		restore := Replace(zap.New(core))
		defer restore()

		NewAudit(nil).Warn("hello")

		assert.Equal(t, 1, observed.Len())
	})

	t.Run("SinkPanicIsSwallowed", func(t *testing.T) {
		l := zap.New(panicCore{})
		assert.NotPanics(t, func() {
			NewAudit(l).Warn("boom")
		})
	})
}

type panicCore struct{ zapcore.Core }

func (panicCore) Enabled(zapcore.Level) bool {
	return true
}

func (c panicCore) With([]zapcore.Field) zapcore.Core {
	return c
}

func (c panicCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return ce.AddCore(e, c)
}

func (panicCore) Write(zapcore.Entry, []zapcore.Field) error {
	panic("sink unavailable")
}

func (panicCore) Sync() error {
	return nil
}
