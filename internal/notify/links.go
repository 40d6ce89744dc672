package notify

import (
	"strconv"
	"strings"
)

// LinkBuilder produces the receipt and payment URLs embedded in messages.
type LinkBuilder struct {
	BaseURL string
}

func (l *LinkBuilder) origin() string {
	return strings.TrimRight(l.BaseURL, "/")
}

// CustomerReceipt is the public, customer-facing receipt link.
func (l *LinkBuilder) CustomerReceipt(billID int64) string {
	return l.origin() + "/p/receipt/" + strconv.FormatInt(billID, 10)
}

// InternalReceipt is the dashboard-side receipt link.
func (l *LinkBuilder) InternalReceipt(billID int64) string {
	return l.origin() + "/receipt/" + strconv.FormatInt(billID, 10)
}

// Payment is the pending-payment link.
func (l *LinkBuilder) Payment(billID int64) string {
	return l.origin() + "/p/pay/" + strconv.FormatInt(billID, 10)
}
