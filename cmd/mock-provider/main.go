// mock-provider is a stand-in SMS provider with a Twilio-shaped send
// endpoint. Outcome knobs let the retry pipeline be exercised with real
// failures.
package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"billdesk/internal/config"
	"billdesk/internal/logging"
	"billdesk/internal/util"
)

type sendResponse struct {
	Sid       string `json:"sid"`
	Status    string `json:"status"`
	ErrorCode *int   `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

type server struct {
	cfg      config.MockProviderConfig
	outcomes []string
	idx      uint64
	rng      *rand.Rand
	rngMu    sync.Mutex
}

func main() {
	cfg := config.LoadMockProvider()
	logging.Init("mock-provider", cfg.LogFormat)

	outcomes := parseCSV(cfg.OutcomesRaw)
	if len(outcomes) == 0 {
		outcomes = []string{"ok"}
	}

	s := &server{
		cfg:      cfg,
		outcomes: outcomes,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	router := mux.NewRouter()
	router.HandleFunc("/2010-04-01/Accounts/{AccountSid}/Messages.json", s.handleSend).
		Methods(http.MethodPost)

	slog.Info("mock provider listening", "port", cfg.Port, "mode", cfg.OutcomeMode)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		slog.Error("mock provider server failed", "err", err)
		os.Exit(1)
	}
}

func (s *server) handleSend(w http.ResponseWriter, r *http.Request) {
	if s.cfg.DelayMs > 0 {
		time.Sleep(time.Duration(s.cfg.DelayMs) * time.Millisecond)
	}

	if mux.Vars(r)["AccountSid"] != s.cfg.AccountSID {
		writeJSON(w, http.StatusUnauthorized, sendResponse{Message: "unknown account sid"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, sendResponse{Message: "bad form"})
		return
	}
	to := strings.TrimSpace(r.PostFormValue("To"))
	body := r.PostFormValue("Body")
	if to == "" || body == "" {
		code := 21604
		writeJSON(w, http.StatusBadRequest, sendResponse{
			Status: "failed", ErrorCode: &code, Message: "'To' and 'Body' are required",
		})
		return
	}

	switch s.nextOutcome() {
	case "ok":
		writeJSON(w, http.StatusCreated, sendResponse{
			Sid:    util.NewMessageSID(),
			Status: "queued",
		})
	default:
		code := 30008
		writeJSON(w, http.StatusInternalServerError, sendResponse{
			Status: "failed", ErrorCode: &code, Message: "message delivery failed",
		})
	}
}

func (s *server) nextOutcome() string {
	switch s.cfg.OutcomeMode {
	case "sequence":
		i := atomic.AddUint64(&s.idx, 1) - 1
		return s.outcomes[i%uint64(len(s.outcomes))]
	case "random":
		s.rngMu.Lock()
		v := s.rng.Float64()
		s.rngMu.Unlock()
		if v < s.cfg.SuccessRate {
			return "ok"
		}
		return "failed"
	default:
		return s.outcomes[0]
	}
}

func parseCSV(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v sendResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
