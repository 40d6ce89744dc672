package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"billdesk/internal/domain"
	"billdesk/internal/notify"
	"billdesk/internal/providers/sms"
	"billdesk/internal/retry"
	"billdesk/internal/service"
	"billdesk/internal/settings"
	"billdesk/internal/store"
)

// newTestAPI wires the full stack against the in-memory persister and the
// simulated SMS transport. No network, no sleeping loops.
func newTestAPI(t *testing.T) *mux.Router {
	t.Helper()

	p := store.NewMemPersister()
	s := store.New(p)
	st := settings.New(p, settings.Defaults{
		StoreName:  "Mammta's Food",
		UPIID:      "9309908454@ybl",
		FromNumber: "+10000000000",
	})
	q := retry.NewQueue(p)

	links := &notify.LinkBuilder{BaseURL: "http://localhost:3000"}
	msg := &notify.MessageBuilder{Links: links, SupportPhone: "+91 XXXXXXXXXX"}
	d := &notify.Dispatcher{
		Bills:    s,
		Settings: st,
		WhatsApp: &notify.WhatsAppChannel{Msg: msg, Settings: st},
		SMS:      &notify.SMSChannel{Client: &sms.Client{}, Msg: msg, Settings: st},
	}

	svc := service.New(s, d, q, links)
	svc.Start()
	t.Cleanup(func() { svc.Stop() })

	api := &API{Svc: svc, Settings: st, Validate: validator.New()}
	r := mux.NewRouter()
	api.Register(r)
	return r
}

func do(t *testing.T, r *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

const createBody = `{"customer":{"name":"Asha","phone":"+911234567890"},"items":[{"name":"Dosa","price":60.5,"quantity":2}]}`

func TestCreateBill(t *testing.T) {
	r := newTestAPI(t)

	w := do(t, r, http.MethodPost, "/v1/bills", createBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp domain.CreateBillResponse
	decode(t, w, &resp)
	if resp.ID != 1 || !resp.Success {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCreateBillBadJSON(t *testing.T) {
	r := newTestAPI(t)
	if w := do(t, r, http.MethodPost, "/v1/bills", "{not json"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateBillNoItems(t *testing.T) {
	r := newTestAPI(t)
	w := do(t, r, http.MethodPost, "/v1/bills", `{"customer":{"name":"Asha"},"items":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty items, got %d", w.Code)
	}
}

func TestGetBill(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", createBody)

	w := do(t, r, http.MethodGet, "/v1/bills/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var bill domain.Bill
	decode(t, w, &bill)
	if bill.ID != 1 || bill.Total != 121 {
		t.Fatalf("unexpected bill: %+v", bill)
	}

	if w := do(t, r, http.MethodGet, "/v1/bills/99", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/v1/bills/abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", w.Code)
	}
}

func TestListBills(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", createBody)
	do(t, r, http.MethodPost, "/v1/bills", createBody)

	w := do(t, r, http.MethodGet, "/v1/bills", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var bills []domain.Bill
	decode(t, w, &bills)
	if len(bills) != 2 {
		t.Fatalf("expected 2 bills, got %d", len(bills))
	}
}

func TestPayBillTwice(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", createBody)

	w := do(t, r, http.MethodPost, "/v1/bills/1/pay", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res domain.StatusUpdateResult
	decode(t, w, &res)
	if !res.Changed {
		t.Fatalf("first pay must change state: %+v", res)
	}
	if res.ReceiptURL != "http://localhost:3000/p/receipt/1" {
		t.Fatalf("unexpected receipt url: %q", res.ReceiptURL)
	}

	w = do(t, r, http.MethodPost, "/v1/bills/1/pay", "")
	if w.Code != http.StatusOK {
		t.Fatalf("second pay must be a 200 no-op, got %d", w.Code)
	}
	decode(t, w, &res)
	if res.Changed {
		t.Fatalf("second pay must not change state: %+v", res)
	}
}

func TestPayCancelledBill(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", createBody)
	do(t, r, http.MethodPost, "/v1/bills/1/cancel", "")

	if w := do(t, r, http.MethodPost, "/v1/bills/1/pay", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestNotifyBill(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", createBody)

	w := do(t, r, http.MethodPost, "/v1/bills/1/notify", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res notify.DeliveryResult
	decode(t, w, &res)
	if res.Channel != notify.ChannelWhatsApp || res.Link == "" {
		t.Fatalf("unexpected delivery result: %+v", res)
	}
}

func TestNotifyBillWithoutPhone(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", `{"customer":{"name":"Asha"},"items":[{"name":"A","price":10,"quantity":1}]}`)

	if w := do(t, r, http.MethodPost, "/v1/bills/1/notify", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing phone, got %d", w.Code)
	}
}

func TestNotifyBillPhoneOverride(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", `{"customer":{"name":"Asha"},"items":[{"name":"A","price":10,"quantity":1}]}`)

	w := do(t, r, http.MethodPost, "/v1/bills/1/notify", `{"phone":"98765 43210"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res notify.DeliveryResult
	decode(t, w, &res)
	if res.Recipient != "9876543210" {
		t.Fatalf("expected override recipient, got %q", res.Recipient)
	}

	// The stored contact phone stays empty; only the delivery phone is recorded.
	w = do(t, r, http.MethodGet, "/v1/bills/1", "")
	var bill domain.Bill
	decode(t, w, &bill)
	if bill.Phone != "" {
		t.Fatalf("stored phone must not be overwritten, got %q", bill.Phone)
	}
	if bill.LastDeliveryPhone != "9876543210" {
		t.Fatalf("expected delivery phone recorded, got %q", bill.LastDeliveryPhone)
	}
}

func TestReceipt(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", createBody)

	if w := do(t, r, http.MethodGet, "/v1/bills/1/receipt", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for unpaid receipt, got %d", w.Code)
	}

	do(t, r, http.MethodPost, "/v1/bills/1/pay", "")
	w := do(t, r, http.MethodGet, "/v1/bills/1/receipt", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var data domain.ReceiptData
	decode(t, w, &data)
	if data.Total != 121 || !strings.HasPrefix(data.ReceiptNumber, "R-1-") {
		t.Fatalf("unexpected receipt: %+v", data)
	}
	if data.InternalURL != "http://localhost:3000/receipt/1" {
		t.Fatalf("unexpected internal url: %q", data.InternalURL)
	}
}

func TestDeleteBill(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", createBody)

	if w := do(t, r, http.MethodDelete, "/v1/bills/1", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/v1/bills/1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestResendAll(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", createBody)

	w := do(t, r, http.MethodPost, "/v1/notifications/resend-all", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var summary domain.ResendSummary
	decode(t, w, &summary)
	if summary.Sent+summary.Failed != summary.Candidates {
		t.Fatalf("counts must add up: %+v", summary)
	}
}

func TestStats(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", createBody)
	do(t, r, http.MethodPost, "/v1/bills/1/pay", "")

	w := do(t, r, http.MethodGet, "/v1/dashboard/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats domain.DashboardStats
	decode(t, w, &stats)
	if stats.TotalBills != 1 || stats.PaidBills != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	r := newTestAPI(t)

	w := do(t, r, http.MethodGet, "/v1/settings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var st settings.Settings
	decode(t, w, &st)
	if !st.UseWhatsApp || st.StoreName != "Mammta's Food" {
		t.Fatalf("unexpected defaults: %+v", st)
	}

	st.UseWhatsApp = false
	body, _ := json.Marshal(st)
	w = do(t, r, http.MethodPut, "/v1/settings", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	decode(t, w, &st)
	if st.UseWhatsApp {
		t.Fatalf("update not applied: %+v", st)
	}
}

func TestClear(t *testing.T) {
	r := newTestAPI(t)
	do(t, r, http.MethodPost, "/v1/bills", createBody)

	if w := do(t, r, http.MethodPost, "/v1/admin/clear", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w := do(t, r, http.MethodGet, "/v1/bills", "")
	var bills []domain.Bill
	decode(t, w, &bills)
	if len(bills) != 0 {
		t.Fatalf("expected no bills after clear, got %d", len(bills))
	}
}
