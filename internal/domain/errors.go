package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("bill not found")
	ErrBillCancelled = errors.New("cannot mark a cancelled bill as paid")
	ErrBillPaid      = errors.New("cannot cancel a paid bill")
	ErrReceiptUnpaid = errors.New("cannot generate receipt for unpaid bill")
)

// ValidationError covers malformed input: missing phone, empty item fields.
// Validation failures surface synchronously and are never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DeliveryError means every channel in the strategy list failed for a bill.
type DeliveryError struct {
	BillID int64
	Reason string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed for bill #%d: %s", e.BillID, e.Reason)
}

func IsDelivery(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
