// Package settings holds the persisted messaging preferences: channel choice,
// store identity and the SMS provider credentials.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"billdesk/internal/store"
)

const SnapshotKey = "sms_settings"

type Settings struct {
	UseWhatsApp bool   `json:"useWhatsApp"`
	Enabled     bool   `json:"enabled"`
	StoreName   string `json:"storeName"`
	UPIID       string `json:"upiId"`

	AccountSID string `json:"accountSid"`
	AuthToken  string `json:"authToken"`
	FromNumber string `json:"fromNumber"`
}

type Defaults struct {
	StoreName  string
	UPIID      string
	AccountSID string
	AuthToken  string
	FromNumber string
}

type Service struct {
	mu        sync.Mutex
	cur       Settings
	persister store.Persister
}

func New(p store.Persister, d Defaults) *Service {
	return &Service{
		cur: Settings{
			UseWhatsApp: true,
			Enabled:     true,
			StoreName:   d.StoreName,
			UPIID:       d.UPIID,
			AccountSID:  d.AccountSID,
			AuthToken:   d.AuthToken,
			FromNumber:  d.FromNumber,
		},
		persister: p,
	}
}

func (s *Service) Load(ctx context.Context) error {
	data, found, err := s.persister.Load(ctx, SnapshotKey)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !found {
		return nil
	}
	var st Settings
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	s.mu.Lock()
	s.cur = st
	s.mu.Unlock()
	return nil
}

func (s *Service) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *Service) Update(ctx context.Context, st Settings) {
	s.mu.Lock()
	s.cur = st
	s.mu.Unlock()

	data, err := json.Marshal(st)
	if err != nil {
		slog.Error("encode settings failed", "err", err)
		return
	}
	if err := s.persister.Save(ctx, SnapshotKey, data); err != nil {
		slog.Error("save settings failed", "err", err)
	}
}
