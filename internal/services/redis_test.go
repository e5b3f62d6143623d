package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gyanburu-backend/internal/services"
)

func TestGetWalletMissing(t *testing.T) {
	_, rs := setupTestRedis(t)

	w, err := rs.GetWallet(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if w != nil {
		t.Errorf("Expected no wallet, got %+v", w)
	}
}

func TestGetWalletRejectsCorruptDocuments(t *testing.T) {
	m, rs := setupTestRedis(t)

	m.Set(fmt.Sprintf(services.KeyWallet, "neg"), `{"identity":"neg","credits":-5}`)
	if _, err := rs.GetWallet(context.Background(), "neg"); err == nil {
		t.Error("Expected an error for negative credits")
	}

	m.Set(fmt.Sprintf(services.KeyWallet, "junk"), `not json`)
	if _, err := rs.GetWallet(context.Background(), "junk"); err == nil {
		t.Error("Expected an error for a malformed wallet")
	}
}

func TestRateLimitWindowPersisted(t *testing.T) {
	m, rs := setupTestRedis(t)
	ctx := context.Background()
	seedWallet(t, rs, "kim", 100)

	cfg := testGameConfig()
	cfg.Policy.Cooldown = 800 * time.Millisecond
	engine := newTestEngine(rs, newSeq(0, 1, 2), cfg)

	if _, err := engine.SettleSpin(ctx, "kim", 10, 7); err != nil {
		t.Fatalf("SettleSpin failed: %v", err)
	}

	w, err := rs.GetRateLimitWindow(ctx, "kim")
	if err != nil || w == nil {
		t.Fatalf("Expected a stored window, got %+v, %v", w, err)
	}
	if w.Count != 1 || w.LastActionAt.IsZero() {
		t.Errorf("Unexpected window %+v", w)
	}
	if ttl := m.TTL(fmt.Sprintf(services.KeyRateLimit, "kim")); ttl != cfg.Policy.TTL() {
		t.Errorf("Expected TTL %s, got %s", cfg.Policy.TTL(), ttl)
	}
}

func TestGetRoundsLimit(t *testing.T) {
	m, rs := setupTestRedis(t)
	key := fmt.Sprintf(services.KeyWalletRounds, "lee")
	for i := 0; i < 120; i++ {
		m.RPush(key, fmt.Sprintf(`{"id":"r%d"}`, i))
	}

	rounds, err := rs.GetRounds(context.Background(), "lee", 500)
	if err != nil {
		t.Fatalf("GetRounds failed: %v", err)
	}
	if len(rounds) != 50 {
		t.Errorf("Out-of-range limits fall back to 50, got %d", len(rounds))
	}
	if rounds[0].ID != "r119" {
		t.Errorf("Expected newest first, got %s", rounds[0].ID)
	}

	rounds, _ = rs.GetRounds(context.Background(), "lee", 100)
	if len(rounds) != 100 {
		t.Errorf("Expected 100 rounds, got %d", len(rounds))
	}
}
