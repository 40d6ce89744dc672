package notify

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"billdesk/internal/domain"
	"billdesk/internal/settings"
	"billdesk/internal/util"
)

// WhatsAppChannel builds a wa.me deep link with the url-encoded message text.
// Constructing the link counts as a successful send; there is no delivery
// confirmation on this channel. The caller opens the link.
type WhatsAppChannel struct {
	Msg      *MessageBuilder
	Settings *settings.Service
}

func (c *WhatsAppChannel) Name() string { return ChannelWhatsApp }

func (c *WhatsAppChannel) Deliver(ctx context.Context, bill domain.Bill, phone string) (Outcome, error) {
	digits := util.WhatsAppDigits(phone)
	if digits == "" {
		return Outcome{}, errors.New("no phone number available for WhatsApp")
	}

	st := c.Settings.Get()
	body := c.Msg.WhatsAppMessage(bill, st.StoreName, st.UPIID)

	// encodeURIComponent-style escaping: spaces as %20, not '+'.
	encoded := strings.ReplaceAll(url.QueryEscape(body), "+", "%20")
	link := "https://wa.me/" + digits + "?text=" + encoded

	return Outcome{Link: link, Body: body}, nil
}
