package util

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NormalizePhone strips whitespace and every character except digits and a
// leading '+'.
func NormalizePhone(p string) string {
	p = strings.TrimSpace(p)
	var b strings.Builder
	for i, r := range p {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WhatsAppDigits converts a normalized phone into the digits-only form the
// wa.me deep link wants. Numbers without a country code default to +91.
func WhatsAppDigits(p string) string {
	p = NormalizePhone(p)
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "+") {
		p = "+91" + p
	}
	return strings.TrimPrefix(p, "+")
}

// FormatINR renders an amount with Indian digit grouping, e.g. ₹1,23,456.78.
func FormatINR(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")

	// Indian grouping: last three digits, then pairs.
	var groups []string
	if len(intPart) > 3 {
		head := intPart[:len(intPart)-3]
		groups = append(groups, intPart[len(intPart)-3:])
		for len(head) > 2 {
			groups = append(groups, head[len(head)-2:])
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append(groups, head)
		}
		for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
			groups[i], groups[j] = groups[j], groups[i]
		}
		intPart = strings.Join(groups, ",")
	}

	out := "₹" + intPart + "." + fracPart
	if neg {
		return "-" + out
	}
	return out
}

// Amount prints a float the way the templates want it: no trailing zeros.
func Amount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewMessageSID returns a provider-style message id. ULID keeps them sortable.
func NewMessageSID() string {
	return "SM" + ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}

// NewReceiptNumber builds a receipt reference for a paid bill.
func NewReceiptNumber(billID int64) string {
	u := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
	return "R-" + strconv.FormatInt(billID, 10) + "-" + u[len(u)-6:]
}

func NowUTC() time.Time {
	return time.Now().UTC()
}
