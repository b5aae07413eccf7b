package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const ProviderNochex = "NOCHEX"

// NotificationRecord is the durable copy of a received notification.
type NotificationRecord struct {
	Provider    string
	Channel     string
	Fingerprint string
	OrderRef    string
	Token       string
	RemoteIP    string
	Payload     json.RawMessage
}

func NewNotificationRecord(n *Notification) (*NotificationRecord, error) {
	payload, err := json.Marshal(sanitizeFields(n.Fields))
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification payload: %w", err)
	}

	return &NotificationRecord{
		Provider:    ProviderNochex,
		Channel:     n.Channel.String(),
		Fingerprint: n.Fingerprint(),
		OrderRef:    n.OrderRef,
		Token:       n.Token,
		RemoteIP:    n.RemoteIP,
		Payload:     payload,
	}, nil
}

// sanitizeFields copies fields into a form jsonb accepts: invalid UTF-8
// becomes U+FFFD and NUL characters are dropped.
func sanitizeFields(fields url.Values) url.Values {
	out := make(url.Values, len(fields))
	for k, vals := range fields {
		key := cleanText(k)
		for _, v := range vals {
			out[key] = append(out[key], cleanText(v))
		}
	}
	return out
}

func cleanText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

type Repository interface {
	// SaveNotification stores rec, or bumps the attempt counter of an
	// identical earlier delivery. processed is true when that earlier
	// delivery already completed.
	SaveNotification(ctx context.Context, rec *NotificationRecord) (id int64, processed bool, err error)
	MarkNotificationProcessed(ctx context.Context, id int64, outcome string) error
	MarkNotificationFailed(ctx context.Context, id int64, reason string) error
	PurgeNotificationsBefore(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveNotification(ctx context.Context, rec *NotificationRecord) (int64, bool, error) {
	const q = `
	INSERT INTO payment_notifications (
		provider,
		channel,
		fingerprint,
		order_ref,
		order_token,
		remote_ip,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (provider, fingerprint)
	DO UPDATE SET
		attempts = payment_notifications.attempts + 1,
		last_received_at = now()
	RETURNING id, processed_at IS NOT NULL;
	`

	var (
		id        int64
		processed bool
	)
	err := r.db.QueryRowContext(
		ctx,
		q,
		rec.Provider,
		rec.Channel,
		rec.Fingerprint,
		rec.OrderRef,
		rec.Token,
		rec.RemoteIP,
		string(rec.Payload),
	).Scan(&id, &processed)
	if err != nil {
		return 0, false, err
	}

	return id, processed, nil
}

func (r *repository) MarkNotificationProcessed(ctx context.Context, id int64, outcome string) error {
	const q = `
	UPDATE payment_notifications
	SET processed_at = now(), outcome = $2, process_error = NULL
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, id, outcome)
	return err
}

func (r *repository) MarkNotificationFailed(ctx context.Context, id int64, reason string) error {
	const q = `
	UPDATE payment_notifications
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, id, reason)
	return err
}

func (r *repository) PurgeNotificationsBefore(ctx context.Context, before time.Time) (int64, error) {
	const q = `
	DELETE FROM payment_notifications
	WHERE last_received_at < $1;
	`

	res, err := r.db.ExecContext(ctx, q, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
