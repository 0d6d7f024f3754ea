package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/resolvd/resolvd/internal/decision"
	"github.com/resolvd/resolvd/internal/router"
	"github.com/resolvd/resolvd/internal/store"
)

func testMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.withAuth(s.handleStats))
	mux.HandleFunc("/ratifications", s.withAuth(s.handleRatifications))
	mux.HandleFunc("/ratify", s.withAuth(s.handleRatify))
	return mux
}

func TestStatsEndpoint(t *testing.T) {
	rt := router.New(router.Options{})
	srv := NewServer("", "", rt, nil, nil)
	ts := httptest.NewServer(testMux(srv))
	defer ts.Close()

	c := NewClient(ts.URL, "")
	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Router == nil {
		t.Fatal("expected router stats")
	}
	if stats.Gate != nil {
		t.Error("no gate configured, expected nil gate stats")
	}
}

func TestAuthRequired(t *testing.T) {
	srv := NewServer("", "tok123", nil, nil, nil)
	ts := httptest.NewServer(testMux(srv))
	defer ts.Close()

	if _, err := NewClient(ts.URL, "").Stats(context.Background()); err == nil {
		t.Error("expected unauthorized without token")
	}
	if _, err := NewClient(ts.URL, "tok123").Stats(context.Background()); err != nil {
		t.Errorf("authorized request failed: %v", err)
	}
}

func TestRatifyRoundTrip(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "control.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ratifier := decision.NewRatifier(st)
	gate := decision.NewGate(decision.GateOptions{Ratifier: ratifier, Store: st})
	srv := NewServer("", "", nil, gate, st)
	ts := httptest.NewServer(testMux(srv))
	defer ts.Close()

	id := ratifier.Create(&decision.RatificationRequest{NotificationID: "n1", ProposedValue: "yes"})
	c := NewClient(ts.URL, "")

	pending, err := c.PendingRatifications(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].RatificationID != id {
		t.Fatalf("pending = %+v", pending)
	}

	if err := c.Ratify(context.Background(), id, true); err != nil {
		t.Fatal(err)
	}
	if err := c.Ratify(context.Background(), "unknown", true); err == nil {
		t.Error("expected error for unknown ratification")
	}
}
