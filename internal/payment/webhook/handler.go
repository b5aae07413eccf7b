package webhook

import (
	"context"
	"io"
	"net/http"

	"nochex-be/internal/dedup"
	"nochex-be/internal/logger"
	"nochex-be/internal/metrics"
	"nochex-be/internal/payment"
	"nochex-be/internal/transport"

	"go.uber.org/zap"
)

type Deps struct {
	Settings      payment.Settings
	Orders        OrderStore
	Verifier      payment.Verifier
	Notifications payment.Repository
	Guard         dedup.Guard
	Metrics       *metrics.Notifications
	Audit         payment.Warner
}

// Handler serves the notification endpoint for both channels.
type Handler struct {
	receiver      *Receiver
	verifier      payment.Verifier
	updater       *Updater
	notifications payment.Repository
	guard         dedup.Guard
	metrics       *metrics.Notifications
	audit         payment.Warner
}

func NewHandler(d Deps) *Handler {
	if d.Metrics == nil {
		d.Metrics = &metrics.Notifications{}
	}
	if d.Audit == nil {
		d.Audit = logger.NewAudit(nil)
	}

	return &Handler{
		receiver:      NewReceiver(d.Settings, d.Audit),
		verifier:      d.Verifier,
		updater:       NewUpdater(d.Orders, d.Audit),
		notifications: d.Notifications,
		guard:         d.Guard,
		metrics:       d.Metrics,
		audit:         d.Audit,
	}
}

// NotificationHandler acknowledges with 200 whenever retrying cannot change
// the result, including rejected and malformed notifications. A 500 asks the
// gateway to deliver again.
func (h *Handler) NotificationHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx)
	h.metrics.Received.Inc()

	in, err := transport.FromRequest(w, r)
	if err != nil {
		h.metrics.Malformed.Inc()
		log.Warn("unreadable nochex notification", zap.Error(err))
		h.audit.Warn("Nochex notification rejected: " + err.Error())
		acknowledge(w)
		return
	}

	if in.Query.Get(payment.ChannelQueryParam) != payment.ChannelQueryValue {
		h.metrics.Malformed.Inc()
		log.Warn("nochex notification without channel marker ignored", zap.String("ip", in.RemoteIP))
		acknowledge(w)
		return
	}

	n, err := h.receiver.Receive(ctx, in)
	if err != nil {
		h.metrics.Malformed.Inc()
		h.audit.Warn("Nochex notification rejected: " + err.Error() + "\r\n\r\n" + payment.BuildTrace(&payment.Notification{RemoteIP: in.RemoteIP, Fields: in.Fields}, ""))
		acknowledge(w)
		return
	}

	log = log.With(
		zap.String("channel", n.Channel.String()),
		zap.String("order_ref", n.OrderRef),
		zap.String("transaction_id", n.TransactionID),
	)

	fingerprint := n.Fingerprint()
	if h.guard != nil {
		acquired, err := h.guard.Acquire(ctx, fingerprint)
		switch {
		case err != nil:
			log.Warn("notification guard unavailable, continuing", zap.Error(err))
		case !acquired:
			h.metrics.Duplicates.Inc()
			log.Info("duplicate nochex notification in flight, skipped")
			acknowledge(w)
			return
		default:
			defer func() {
				if err := h.guard.Release(context.WithoutCancel(ctx), fingerprint); err != nil {
					log.Warn("failed to release notification guard", zap.Error(err))
				}
			}()
		}
	}

	rec, err := payment.NewNotificationRecord(n)
	if err != nil {
		log.Error("failed to build notification record", zap.Error(err))
		http.Error(w, "failed to record notification", http.StatusInternalServerError)
		return
	}

	notificationID, processed, err := h.notifications.SaveNotification(ctx, rec)
	if err != nil {
		log.Error("failed to save nochex notification", zap.Error(err))
		http.Error(w, "failed to record notification", http.StatusInternalServerError)
		return
	}
	if processed {
		h.metrics.Duplicates.Inc()
		log.Info("nochex notification already processed", zap.Int64("notification_id", notificationID))
		acknowledge(w)
		return
	}

	timer := metrics.StartTimer()
	outcome := h.verifier.Verify(ctx, n)
	h.metrics.ObserveVerification(timer.Duration())
	if outcome.Authorized {
		h.metrics.Authorized.Inc()
	} else {
		h.metrics.Rejected.Inc()
	}

	result, err := h.updater.Apply(ctx, n, outcome)
	if err != nil {
		h.metrics.Failed.Inc()
		log.Error("failed to apply nochex notification", zap.Error(err))
		h.markFailed(ctx, log, notificationID, err.Error())
		http.Error(w, "failed to update order", http.StatusInternalServerError)
		return
	}

	if result == ResultTransitioned {
		h.metrics.Transitioned.Inc()
	}

	if result.Settled() {
		if err := h.notifications.MarkNotificationProcessed(ctx, notificationID, result.String()); err != nil {
			log.Error("failed to mark notification processed", zap.Error(err))
		}
	} else {
		h.markFailed(ctx, log, notificationID, result.String())
	}

	log.Info("nochex notification handled", zap.String("result", result.String()))
	acknowledge(w)
}

func (h *Handler) markFailed(ctx context.Context, log *zap.Logger, id int64, reason string) {
	if err := h.notifications.MarkNotificationFailed(ctx, id, reason); err != nil {
		log.Error("failed to mark notification failed", zap.Error(err))
	}
}

func acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}
