package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"billdesk/internal/domain"
	"billdesk/internal/providers/sms"
	"billdesk/internal/settings"
)

// SMSChannel sends through the provider-shaped transport, guarded by a local
// rate limiter and a circuit breaker.
type SMSChannel struct {
	Client   *sms.Client
	Msg      *MessageBuilder
	Settings *settings.Service
	Limiter  *rate.Limiter
	Breaker  *gobreaker.CircuitBreaker
}

func (c *SMSChannel) Name() string { return ChannelSMS }

func (c *SMSChannel) Deliver(ctx context.Context, bill domain.Bill, phone string) (Outcome, error) {
	st := c.Settings.Get()
	if !st.Enabled {
		return Outcome{}, errors.New("sms sending is disabled in settings")
	}

	body := c.Msg.SMSMessage(bill, st.StoreName, st.UPIID)

	if c.Limiter != nil {
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			return Outcome{}, err
		}
	}

	resp, err := c.execute(ctx, sms.SendRequest{To: phone, Body: body, From: st.FromNumber})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{SID: resp.Sid, Body: body}, nil
}

func (c *SMSChannel) execute(ctx context.Context, req sms.SendRequest) (sms.SendResponse, error) {
	call := func() (any, error) {
		reqCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
		defer cancel()
		return c.Client.Send(reqCtx, req)
	}

	if c.Breaker == nil {
		resp, err := call()
		if err != nil {
			return sms.SendResponse{}, err
		}
		return resp.(sms.SendResponse), nil
	}

	resp, err := c.Breaker.Execute(call)
	if err != nil {
		return sms.SendResponse{}, err
	}
	return resp.(sms.SendResponse), nil
}
