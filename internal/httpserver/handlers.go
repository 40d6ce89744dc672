package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"billdesk/internal/domain"
	"billdesk/internal/service"
	"billdesk/internal/settings"
)

type API struct {
	Svc      *service.BillingService
	Settings *settings.Service
	Validate *validator.Validate
}

func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/v1/bills", a.handleCreateBill).Methods(http.MethodPost)
	r.HandleFunc("/v1/bills", a.handleListBills).Methods(http.MethodGet)
	r.HandleFunc("/v1/bills/{id}", a.handleGetBill).Methods(http.MethodGet)
	r.HandleFunc("/v1/bills/{id}", a.handleDeleteBill).Methods(http.MethodDelete)
	r.HandleFunc("/v1/bills/{id}/pay", a.handlePayBill).Methods(http.MethodPost)
	r.HandleFunc("/v1/bills/{id}/cancel", a.handleCancelBill).Methods(http.MethodPost)
	r.HandleFunc("/v1/bills/{id}/notify", a.handleNotifyBill).Methods(http.MethodPost)
	r.HandleFunc("/v1/bills/{id}/receipt", a.handleReceipt).Methods(http.MethodGet)
	r.HandleFunc("/v1/notifications/resend-all", a.handleResendAll).Methods(http.MethodPost)
	r.HandleFunc("/v1/dashboard/stats", a.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/v1/settings", a.handleGetSettings).Methods(http.MethodGet)
	r.HandleFunc("/v1/settings", a.handlePutSettings).Methods(http.MethodPut)
	r.HandleFunc("/v1/admin/clear", a.handleClear).Methods(http.MethodPost)
}

func (a *API) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := a.Svc.CreateBill(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListBills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Svc.ListBills(r.Context()))
}

func (a *API) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, ok := billID(w, r)
	if !ok {
		return
	}
	bill, err := a.Svc.GetBill(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (a *API) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, ok := billID(w, r)
	if !ok {
		return
	}
	a.Svc.DeleteBill(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Bill deleted successfully",
	})
}

func (a *API) handlePayBill(w http.ResponseWriter, r *http.Request) {
	id, ok := billID(w, r)
	if !ok {
		return
	}
	res, err := a.Svc.MarkPaid(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleCancelBill(w http.ResponseWriter, r *http.Request) {
	id, ok := billID(w, r)
	if !ok {
		return
	}
	res, err := a.Svc.CancelBill(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type notifyRequest struct {
	Phone string `json:"phone"`
}

func (a *API) handleNotifyBill(w http.ResponseWriter, r *http.Request) {
	id, ok := billID(w, r)
	if !ok {
		return
	}

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}

	res, err := a.Svc.SendBillMessage(r.Context(), id, req.Phone)
	if err != nil {
		slog.Error("send bill message failed", "bill_id", id, "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := billID(w, r)
	if !ok {
		return
	}
	data, err := a.Svc.Receipt(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (a *API) handleResendAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Svc.ResendAllPending(r.Context()))
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Svc.Stats(r.Context()))
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Settings.Get())
}

func (a *API) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var st settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	a.Settings.Update(r.Context(), st)
	writeJSON(w, http.StatusOK, a.Settings.Get())
}

func (a *API) handleClear(w http.ResponseWriter, r *http.Request) {
	a.Svc.Clear(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "All bills cleared successfully",
	})
}

func billID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, ErrInvalidID, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, ErrNotFound, http.StatusNotFound)
	case errors.Is(err, domain.ErrBillCancelled),
		errors.Is(err, domain.ErrBillPaid),
		errors.Is(err, domain.ErrReceiptUnpaid):
		http.Error(w, err.Error(), http.StatusConflict)
	case domain.IsDelivery(err):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, ErrDependency, http.StatusInternalServerError)
	}
}
