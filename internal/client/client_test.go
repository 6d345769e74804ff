package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/talgya/hinterland/internal/api"
	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/config"
	"github.com/talgya/hinterland/internal/engine"
	"github.com/talgya/hinterland/internal/entropy"
	"github.com/talgya/hinterland/internal/village"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newClient(t *testing.T) (*Client, *engine.Engine) {
	t.Helper()
	cfg := config.Default()
	cfg.AI.AttackEnabled = false
	w := engine.NewWorld(catalog.Default(), cfg, entropy.NewSeeded(11), t0)
	eng := engine.NewEngine(w, engine.NewManualClock(t0))
	s, err := api.NewServer(eng, nil, 0, "key")
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL, "key"), eng
}

func TestQueries(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	if err := c.WaitReady(ctx); err != nil {
		t.Fatal(err)
	}
	st, err := c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "Hinterland" || !st.Time.Equal(t0) || st.Villages == 0 {
		t.Errorf("status = %+v", st)
	}

	vs, err := c.Villages(ctx, village.OwnerPlayer)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 || vs[0].ID != 1 {
		t.Errorf("villages = %+v", vs)
	}

	ms, err := c.Missions(ctx, 1)
	if err != nil || len(ms) != 0 {
		t.Errorf("missions = %v, %v", ms, err)
	}
	rs, err := c.Reports(ctx, 1, 10, false)
	if err != nil || len(rs) != 0 {
		t.Errorf("reports = %v, %v", rs, err)
	}
}

func TestActions(t *testing.T) {
	c, eng := newClient(t)
	ctx := context.Background()

	var order village.BuildOrder
	err := c.Act(ctx, "build", map[string]any{"village": 1, "building": catalog.Farm}, &order)
	if err != nil {
		t.Fatal(err)
	}
	if order.Building != catalog.Farm {
		t.Errorf("order = %+v", order)
	}

	err = c.Act(ctx, "train", map[string]any{"village": 1, "unit": catalog.Spear, "count": 1}, nil)
	if !IsRejected(err, "missing_prerequisite") {
		t.Errorf("err = %v", err)
	}
	if rej, ok := err.(*Rejected); !ok || rej.Status != 422 {
		t.Errorf("rejection = %#v", err)
	}

	if err := c.SetSpeed(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if eng.Speed() != 3 {
		t.Errorf("speed = %v", eng.Speed())
	}

	c.AdminKey = "wrong"
	if err := c.SetSpeed(ctx, 1); err == nil {
		t.Error("wrong key accepted")
	}
}

func TestWaitReadyHonoursContext(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := c.WaitReady(ctx); err == nil {
		t.Error("expected timeout")
	}
}
