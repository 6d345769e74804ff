package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/village"
	"github.com/talgya/hinterland/internal/world"
)

// Snapshot is one encoded save of the world plus the reports produced
// since the previous save.
type Snapshot struct {
	Time    time.Time
	Blob    []byte
	Reports []Report
}

// Saver stores snapshots. Implementations may be slow; the engine calls
// them outside its lock.
type Saver interface {
	Save(ctx context.Context, s Snapshot) error
}

// Encoder serialises the world. It runs under the engine lock.
type Encoder func(w *World) ([]byte, error)

// EventType tags what an Event carries.
type EventType string

const (
	EventReport EventType = "report"
	EventTick   EventType = "tick"
)

// Event is pushed to subscribers as the world changes.
type Event struct {
	Type   EventType `json:"type"`
	Report *Report   `json:"report,omitempty"`
	Status *Status   `json:"status,omitempty"`
}

// Status summarises the running simulation.
type Status struct {
	Time         time.Time `json:"time"` // Simulation time of the last tick
	Speed        float64   `json:"speed"`
	Running      bool      `json:"running"`
	Villages     int       `json:"villages"`
	Missions     int       `json:"missions"`
	Reports      int       `json:"reports"`
	PlayerPoints int       `json:"player_points"`
	LastSave     time.Time `json:"last_save,omitzero"`
}

// Engine drives a World forward in time and serialises every action and
// query against it.
type Engine struct {
	Interval time.Duration // Tick cadence of Run

	mu       sync.Mutex
	world    *World
	clock    Clock
	speed    float64 // 1.0 = real time, 0 = paused
	simNow   time.Time
	lastWall time.Time
	nextAI   time.Time
	nextSave time.Time
	dirty    bool
	dirtyAt  time.Time
	lastSave time.Time
	pending  []Report // Produced since the last successful save

	saver   Saver
	encode  Encoder
	saving  atomic.Bool
	saveMu  sync.Mutex
	saveWG  sync.WaitGroup
	running atomic.Bool
	stop    chan struct{}
	once    sync.Once

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

// NewEngine wraps w. Simulation time starts at the clock's now, so a world
// loaded from an old snapshot catches up on the first tick.
func NewEngine(w *World, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	now := clock.Now()
	cfg := w.Config()
	e := &Engine{
		Interval: cfg.Sim.TickInterval,
		world:    w,
		clock:    clock,
		speed:    1.0,
		simNow:   now,
		lastWall: now,
		nextAI:   now.Add(cfg.AI.PassInterval),
		nextSave: now.Add(cfg.Save.Interval),
		stop:     make(chan struct{}),
		subs:     make(map[chan Event]struct{}),
	}
	if e.Interval <= 0 {
		e.Interval = time.Second
	}
	w.OnReport(e.recordReport)
	return e
}

// SetSaver enables periodic and debounced saves.
func (e *Engine) SetSaver(s Saver, enc Encoder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saver = s
	e.encode = enc
}

// Run ticks the world every Interval until ctx is done or Stop is called.
// In-flight saves are waited for before it returns.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "interval", e.Interval, "speed", e.Speed())

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.saveWG.Wait()
			slog.Info("simulation engine stopped", "reason", ctx.Err())
			return
		case <-e.stop:
			e.saveWG.Wait()
			slog.Info("simulation engine stopped")
			return
		case <-ticker.C:
			e.Step()
		}
	}
}

// Stop halts Run.
func (e *Engine) Stop() {
	e.once.Do(func() { close(e.stop) })
}

// Running reports whether Run is active.
func (e *Engine) Running() bool { return e.running.Load() }

// Step advances the world to the current simulation time, runs the AI when
// it is due and kicks off a save when one is due.
func (e *Engine) Step() {
	e.mu.Lock()
	now := e.catchUp()
	cfg := e.world.Config()
	if e.speed > 0 && !now.Before(e.nextAI) {
		stats := e.world.AIPass(now)
		e.nextAI = now.Add(cfg.AI.PassInterval)
		if stats.Builds+stats.Trained+stats.Attacks > 0 {
			e.markDirty()
			slog.Debug("ai pass", "villages", stats.Villages, "builds", stats.Builds, "trained", stats.Trained, "attacks", stats.Attacks)
		}
	}
	snap, ok := e.dueSnapshot()
	status := e.status()
	e.mu.Unlock()

	if ok {
		e.saveAsync(snap)
	}
	e.publish(Event{Type: EventTick, Status: &status})
}

// catchUp moves simulation time forward by the wall time elapsed times the
// speed and ticks the world there. Callers hold mu.
func (e *Engine) catchUp() time.Time {
	e.simNow = e.peek()
	e.lastWall = e.clock.Now()
	e.world.Tick(e.simNow)
	return e.simNow
}

// peek is the current simulation time without advancing anything.
func (e *Engine) peek() time.Time {
	elapsed := e.clock.Now().Sub(e.lastWall)
	if elapsed <= 0 || e.speed <= 0 {
		return e.simNow
	}
	return e.simNow.Add(time.Duration(float64(elapsed) * e.speed))
}

func (e *Engine) markDirty() {
	if !e.dirty {
		e.dirtyAt = e.clock.Now()
	}
	e.dirty = true
}

func (e *Engine) recordReport(r Report) {
	e.pending = append(e.pending, r)
	e.markDirty()
	e.publish(Event{Type: EventReport, Report: &r})
}

// dueSnapshot encodes the world when the save interval has passed or a
// change has settled for the debounce period. Callers hold mu.
func (e *Engine) dueSnapshot() (Snapshot, bool) {
	if e.saver == nil || e.encode == nil || e.saving.Load() {
		return Snapshot{}, false
	}
	wall := e.clock.Now()
	cfg := e.world.Config().Save
	periodic := !wall.Before(e.nextSave)
	debounced := e.dirty && wall.Sub(e.dirtyAt) >= cfg.Debounce
	if !periodic && !debounced {
		return Snapshot{}, false
	}
	e.nextSave = wall.Add(cfg.Interval)
	return e.snapshot()
}

func (e *Engine) snapshot() (Snapshot, bool) {
	blob, err := e.encode(e.world)
	if err != nil {
		slog.Error("encoding world failed", "err", err)
		return Snapshot{}, false
	}
	snap := Snapshot{Time: e.world.LastTick, Blob: blob, Reports: e.pending}
	e.pending = nil
	e.dirty = false
	return snap, true
}

// saveAsync writes snap in the background. Only one write runs at a time;
// a failed write puts its reports back and leaves the world dirty so the
// next cadence retries.
func (e *Engine) saveAsync(snap Snapshot) {
	if !e.saving.CompareAndSwap(false, true) {
		e.restore(snap)
		return
	}
	e.saveWG.Add(1)
	go func() {
		defer e.saveWG.Done()
		defer e.saving.Store(false)
		if err := e.write(context.Background(), snap); err != nil {
			slog.Error("save failed", "err", err)
		}
	}()
}

func (e *Engine) write(ctx context.Context, snap Snapshot) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if err := e.saver.Save(ctx, snap); err != nil {
		e.restore(snap)
		return err
	}
	e.mu.Lock()
	e.lastSave = e.clock.Now()
	e.mu.Unlock()
	slog.Debug("world saved", "bytes", len(snap.Blob), "reports", len(snap.Reports))
	return nil
}

func (e *Engine) restore(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(snap.Reports, e.pending...)
	e.markDirty()
}

// SaveNow writes the current world synchronously.
func (e *Engine) SaveNow(ctx context.Context) error {
	e.mu.Lock()
	if e.saver == nil || e.encode == nil {
		e.mu.Unlock()
		return errors.New("no saver configured")
	}
	e.catchUp()
	snap, ok := e.snapshot()
	e.mu.Unlock()
	if !ok {
		return errors.New("encoding world failed")
	}
	return e.write(ctx, snap)
}

// Export encodes the world with enc under the lock.
func (e *Engine) Export(enc Encoder) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catchUp()
	return enc(e.world)
}

// SetSpeed changes the simulation speed. Zero pauses.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.simNow = e.peek()
	e.lastWall = e.clock.Now()
	e.speed = max(speed, 0)
	slog.Info("simulation speed changed", "speed", e.speed)
}

// Speed returns the speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Status summarises the simulation.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status()
}

func (e *Engine) status() Status {
	return Status{
		Time:         e.world.LastTick,
		Speed:        e.speed,
		Running:      e.running.Load(),
		Villages:     len(e.world.Villages),
		Missions:     len(e.world.Missions),
		Reports:      len(e.world.Reports),
		PlayerPoints: e.world.PlayerPoints(),
		LastSave:     e.lastSave,
	}
}

// Subscribe returns a channel of events and a function that ends the
// subscription. Slow subscribers miss events rather than block the world.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	e.subMu.Lock()
	e.subs[ch] = struct{}{}
	e.subMu.Unlock()
	return ch, func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
	}
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// act runs an action against a caught-up world and marks it dirty when
// the action was accepted.
func act[T any](e *Engine, fn func(now time.Time) (T, error)) (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out, err := fn(e.catchUp())
	if err == nil {
		e.markDirty()
	}
	return out, err
}

// IssueBuildOrder queues the next level of b in the player's village id.
func (e *Engine) IssueBuildOrder(id village.ID, b catalog.BuildingID) (village.BuildOrder, error) {
	return act(e, func(now time.Time) (village.BuildOrder, error) {
		if err := e.world.requireOwner(id, village.OwnerPlayer); err != nil {
			return village.BuildOrder{}, err
		}
		return e.world.IssueBuildOrder(id, b, now)
	})
}

// IssueResearchOrder queues the next tech level of u in the player's village id.
func (e *Engine) IssueResearchOrder(id village.ID, u catalog.UnitID) (village.ResearchOrder, error) {
	return act(e, func(now time.Time) (village.ResearchOrder, error) {
		if err := e.world.requireOwner(id, village.OwnerPlayer); err != nil {
			return village.ResearchOrder{}, err
		}
		return e.world.IssueResearchOrder(id, u, now)
	})
}

// IssueTrainOrder queues count units of u in the player's village id.
func (e *Engine) IssueTrainOrder(id village.ID, u catalog.UnitID, count int) (village.TrainingBatch, error) {
	return act(e, func(now time.Time) (village.TrainingBatch, error) {
		if err := e.world.requireOwner(id, village.OwnerPlayer); err != nil {
			return village.TrainingBatch{}, err
		}
		return e.world.IssueTrainOrder(id, u, count, now)
	})
}

// CancelQueueEntry cancels entry index of a queue in the player's village id.
func (e *Engine) CancelQueueEntry(id village.ID, kind village.QueueKind, index int) (Cancellation, error) {
	return act(e, func(now time.Time) (Cancellation, error) {
		if err := e.world.requireOwner(id, village.OwnerPlayer); err != nil {
			return Cancellation{}, err
		}
		return e.world.CancelQueueEntry(id, kind, index, now)
	})
}

// LaunchMission sends units or resources from one of the player's villages.
func (e *Engine) LaunchMission(origin, target village.ID, typ MissionType, units village.Units, res village.Resources) (*Mission, error) {
	return act(e, func(now time.Time) (*Mission, error) {
		if err := e.world.requireOwner(origin, village.OwnerPlayer); err != nil {
			return nil, err
		}
		m, err := e.world.LaunchMission(origin, target, typ, units, res, now)
		if err != nil {
			return nil, err
		}
		return m.Clone(), nil
	})
}

// RecallSupport sends one of the player's support stacks home.
func (e *Engine) RecallSupport(ref StackRef) (*Mission, error) {
	return act(e, func(now time.Time) (*Mission, error) {
		if err := e.world.requireOwner(ref.Origin, village.OwnerPlayer); err != nil {
			return nil, err
		}
		m, err := e.world.RecallSupport(ref, now)
		if err != nil {
			return nil, err
		}
		return m.Clone(), nil
	})
}

// GenerateChunk explores the map around c.
func (e *Engine) GenerateChunk(c world.Coord) ([]*village.Village, error) {
	return act(e, func(time.Time) ([]*village.Village, error) {
		created, err := e.world.GenerateChunk(c)
		if err != nil {
			return nil, err
		}
		out := make([]*village.Village, len(created))
		for i, v := range created {
			out[i] = v.Clone()
		}
		return out, nil
	})
}

// RenameVillage changes the display name of the player's village id.
func (e *Engine) RenameVillage(id village.ID, name string) error {
	_, err := act(e, func(time.Time) (struct{}, error) {
		if err := e.world.requireOwner(id, village.OwnerPlayer); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, e.world.RenameVillage(id, name)
	})
	return err
}

// Village returns a copy of village id.
func (e *Engine) Village(id village.ID) (*village.Village, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.world.Village(id)
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// Villages returns copies of the villages held by owner, all when owner is
// empty.
func (e *Engine) Villages(owner village.Owner) []*village.Village {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*village.Village
	for _, v := range e.world.Villages {
		if owner == "" || v.Owner == owner {
			out = append(out, v.Clone())
		}
	}
	return out
}

// Economy returns the derived economy of village id.
func (e *Engine) Economy(id village.ID) (EconomyView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.Economy(id)
}

// Queues lists every queue of village id with remaining times.
func (e *Engine) Queues(id village.ID) (map[village.QueueKind][]QueueItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.world.Village(id)
	if !ok {
		return nil, reject(ErrVillageNotFound, "village %d", id)
	}
	now := e.peek()
	out := make(map[village.QueueKind][]QueueItem)
	for _, kind := range e.world.QueueKinds(v) {
		items, err := e.world.QueueView(id, kind, now)
		if err != nil {
			return nil, err
		}
		out[kind] = items
	}
	return out, nil
}

// Missions returns copies of the missions touching village id (all when
// zero), soonest first.
func (e *Engine) Missions(id village.ID) []*Mission {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms := e.world.MissionsFor(id)
	out := make([]*Mission, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}

// Reports returns up to limit reports touching village id, newest first.
func (e *Engine) Reports(id village.ID, limit int) []Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.ReportsFor(id, limit)
}

// Profiles returns every owner profile in id order.
func (e *Engine) Profiles() []village.PlayerProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]village.PlayerProfile, 0, len(e.world.Profiles))
	for _, o := range e.world.Owners() {
		out = append(out, *e.world.Profiles[o])
	}
	return out
}

// Tiles returns the map tiles inside a rectangle.
func (e *Engine) Tiles(min, max world.Coord) []world.Tile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.Tiles(min, max)
}

// MapSize is the largest coordinate on the map.
func (e *Engine) MapSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.Map.Size
}

// Catalog returns the static tables the world runs on.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.world.Catalog()
}
