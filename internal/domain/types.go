package domain

import "time"

type BillStatus string

const (
	StatusPending   BillStatus = "pending"
	StatusPaid      BillStatus = "paid"
	StatusCancelled BillStatus = "cancelled"
)

type BillItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

// Bill is the invoice record owned by the bill store. Phone is the number the
// customer gave us; LastDeliveryPhone is the normalized number the most recent
// delivery attempt actually targeted. Delivery never rewrites Phone.
type Bill struct {
	ID           int64      `json:"id"`
	Date         time.Time  `json:"date"`
	CustomerName string     `json:"customerName"`
	Phone        string     `json:"phone"`
	Items        int        `json:"items"`
	ItemsDetail  string     `json:"itemsDetail"`
	ItemsList    []BillItem `json:"itemsList"`
	Total        float64    `json:"total"`
	Status       BillStatus `json:"status"`

	SMSSent            bool       `json:"smsSent"`
	SMSTimestamp       *time.Time `json:"smsTimestamp,omitempty"`
	SMSCount           int        `json:"smsCount"`
	WhatsAppSent       bool       `json:"whatsAppSent"`
	WhatsAppTimestamp  *time.Time `json:"whatsAppTimestamp,omitempty"`
	MessageCount       int        `json:"messageCount"`
	LastMessageContent string     `json:"lastMessageContent,omitempty"`
	LastDeliveryPhone  string     `json:"lastDeliveryPhone,omitempty"`
	ProviderSID        string     `json:"providerSid,omitempty"`
	DeliveryFailed     bool       `json:"deliveryFailed"`
	LastDeliveryError  string     `json:"lastDeliveryError,omitempty"`

	PaidDate      *time.Time `json:"paidDate,omitempty"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
}

// Sent reports whether the customer was successfully notified on any channel.
func (b Bill) Sent() bool {
	return b.SMSSent || b.WhatsAppSent
}

// RetryDescriptor is a weak reference to a bill whose notification failed.
// The retry loop re-reads the bill from the store at retry time.
type RetryDescriptor struct {
	BillID       int64     `json:"billId"`
	Phone        string    `json:"phone"`
	Attempts     int       `json:"attempts"`
	LastAttempt  time.Time `json:"lastAttempt"`
	ErrorDetails string    `json:"errorDetails"`
}

type ItemInput struct {
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Quantity int     `json:"quantity" validate:"gt=0"`
}

type CustomerInput struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	PaymentStatus string `json:"paymentStatus" validate:"omitempty,oneof=pending paid"`
	PaymentMethod string `json:"paymentMethod"`
}

type CreateBillRequest struct {
	Customer    CustomerInput `json:"customer"`
	Items       []ItemInput   `json:"items" validate:"required,min=1,dive"`
	ItemsDetail string        `json:"itemsDetail"`
}

type CreateBillResponse struct {
	ID      int64 `json:"id"`
	Success bool  `json:"success"`
}

// StatusUpdateResult reports a status transition. Changed is false when the
// bill was already in the target state; that is a no-op success, not an error.
type StatusUpdateResult struct {
	BillID     int64  `json:"billId"`
	Changed    bool   `json:"changed"`
	Message    string `json:"message"`
	ReceiptURL string `json:"receiptUrl,omitempty"`
}

type DashboardStats struct {
	TotalBills    int     `json:"totalBills"`
	TotalAmount   float64 `json:"totalAmount"`
	PendingAmount float64 `json:"pendingAmount"`
	PaidBills     int     `json:"paidBills"`
	PendingBills  int     `json:"pendingBills"`
}

type ReceiptData struct {
	ID            int64      `json:"id"`
	ReceiptNumber string     `json:"receiptNumber"`
	CustomerName  string     `json:"customerName"`
	Date          time.Time  `json:"date"`
	PaidDate      time.Time  `json:"paidDate"`
	Items         string     `json:"items"`
	ItemsList     []BillItem `json:"itemsList"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"paymentMethod"`

	// CustomerURL is the public receipt page; InternalURL the dashboard one.
	CustomerURL string `json:"customerUrl,omitempty"`
	InternalURL string `json:"internalUrl,omitempty"`
}

type ResendSummary struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}
