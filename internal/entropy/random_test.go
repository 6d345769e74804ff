package entropy

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSeededIsDeterministic(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() || a.Intn(17) != b.Intn(17) {
			t.Fatal("same seed produced different sequences")
		}
	}
}

func TestRangesAreBounded(t *testing.T) {
	sources := map[string]Source{"seeded": NewSeeded(1), "crypto": Crypto{}}
	for name, s := range sources {
		for i := 0; i < 1000; i++ {
			if f := s.Float64(); f < 0 || f >= 1 {
				t.Fatalf("%s: Float64 = %v out of range", name, f)
			}
			if n := s.Intn(5); n < 0 || n >= 5 {
				t.Fatalf("%s: Intn(5) = %d out of range", name, n)
			}
		}
		if s.Intn(0) != 0 {
			t.Errorf("%s: Intn(0) should be 0", name)
		}
	}
}

func TestClientUsesPoolThenFallsBack(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			http.Error(w, "quota", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"result":{"random":{"data":[0.25,0.5,0.75]}}}`))
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL

	if got := c.Float64(); got != 0.25 {
		t.Errorf("first draw = %v, want pooled 0.25", got)
	}
	// Pool is below the refill mark, so every draw retries and then pops.
	if got := c.Float64(); got != 0.5 {
		t.Errorf("second draw = %v, want pooled 0.5", got)
	}
	c.Float64()
	if f := c.Float64(); f < 0 || f >= 1 {
		t.Errorf("fallback draw = %v out of range", f)
	}
}

func TestNilClient(t *testing.T) {
	if NewClient("") != nil {
		t.Fatal("empty key should disable the client")
	}
	var c *Client
	if f := c.Float64(); f < 0 || f >= 1 {
		t.Errorf("nil client draw = %v", f)
	}
	if _, ok := Or(nil, NewSeeded(3)).(*Seeded); !ok {
		t.Error("Or should fall back when the client is nil")
	}
}
