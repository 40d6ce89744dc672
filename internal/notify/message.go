package notify

import (
	"fmt"
	"strings"

	"billdesk/internal/domain"
	"billdesk/internal/util"
)

// MessageBuilder renders the customer-facing message bodies. The field order,
// labels and emoji are load-bearing: downstream compatibility tests check them.
type MessageBuilder struct {
	Links        *LinkBuilder
	SupportPhone string
}

// SMSMessage builds the status-dependent SMS body.
func (m *MessageBuilder) SMSMessage(bill domain.Bill, storeName, upiID string) string {
	date := bill.Date.Format("02/01/2006")
	amount := fmt.Sprintf("₹%.2f", bill.Total)
	receiptLink := m.Links.CustomerReceipt(bill.ID)
	paymentLink := m.Links.Payment(bill.ID)

	var emoji, label, statusContent string
	switch bill.Status {
	case domain.StatusPending:
		emoji = "⏳"
		label = "PAYMENT PENDING"
		statusContent = fmt.Sprintf(
			"Your payment is pending.\n\n💳 Pay via UPI: %s\n🔗 Pay online: %s\n\n📱 Payment updates via SMS",
			upiID, paymentLink)
	case domain.StatusPaid:
		emoji = "✅"
		label = "PAYMENT COMPLETED"
		statusContent = fmt.Sprintf(
			"Thank you for your payment!\n\n🧾 View receipt: %s\n\nKeep this message to access your receipt anytime.",
			receiptLink)
	case domain.StatusCancelled:
		emoji = "❌"
		label = "CANCELLED"
		statusContent = "This bill has been cancelled. Please contact us if you have any questions."
	}

	return fmt.Sprintf(
		"📋 *BILL NOTIFICATION*\n\nDear %s,\n\nYour bill from %s is ready!\n\n📌 Bill #%d\n📅 Date: %s\n💰 Amount: %s\n🛍️ Items: %d\n\n%s Status: %s\n\n%s\n\n📞 For assistance: %s\n🏪 %s",
		bill.CustomerName, storeName, bill.ID, date, amount, bill.Items,
		emoji, label, statusContent, m.SupportPhone, storeName)
}

// WhatsAppMessage builds the wa.me text body.
func (m *MessageBuilder) WhatsAppMessage(bill domain.Bill, storeName, upiID string) string {
	total := util.FormatINR(bill.Total)
	receiptLink := m.Links.CustomerReceipt(bill.ID)

	var b strings.Builder
	if bill.Status == domain.StatusPending {
		fmt.Fprintf(&b, "*%s*: Your bill #%d for %s is ready.\n\n", storeName, bill.ID, total)
		fmt.Fprintf(&b, "Pay using PhonePe UPI: %s\n\n", upiID)
		fmt.Fprintf(&b, "View or pay your bill: %s", receiptLink)
	} else {
		fmt.Fprintf(&b, "*%s*: Thank you for your payment of %s for bill #%d.\n\n", storeName, total, bill.ID)
		fmt.Fprintf(&b, "View your receipt: %s", receiptLink)
	}

	if len(bill.ItemsList) > 0 {
		b.WriteString("\n\n*Items:*\n")
		for i, it := range bill.ItemsList {
			fmt.Fprintf(&b, "%d. %s: %d x ₹%s = ₹%s\n",
				i+1, it.Name, it.Quantity, util.Amount(it.Price), util.Amount(it.Subtotal))
		}
	}

	now := util.NowUTC()
	fmt.Fprintf(&b, "\n\nGenerated on: %s at %s",
		now.Format("02/01/2006"), now.Format("3:04:05 PM"))
	return b.String()
}
