package payment

import (
	"errors"
	"fmt"
)

var (
	ErrMerchantNotConfigured = errors.New("nochex merchant id is not configured")
	ErrMethodDisabled        = errors.New("nochex payment method is disabled")
	ErrMalformedNotification = errors.New("malformed notification")
	ErrVerificationTransport = errors.New("verification request failed")
)

// ConfigurationError reports a gateway setting that prevents building a
// payment request.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("payment configuration error (%s): %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
