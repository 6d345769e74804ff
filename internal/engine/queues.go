package engine

import (
	"sort"
	"time"

	"github.com/talgya/hinterland/internal/economy"
	"github.com/talgya/hinterland/internal/village"
)

// advanceVillage runs production and every queue of v from from to now.
// Accrual is integrated piecewise across construction completions so a
// new warehouse or mine level counts from its exact finish time; one call
// over a long gap lands where many short calls would.
func (w *World) advanceVillage(v *village.Village, from, now time.Time) {
	t := from
	q := &v.Queues
	if len(q.Build) > 0 && q.Build[0].Finish.IsZero() {
		q.Build[0].Finish = now.Add(q.Build[0].Duration)
	}
	for len(q.Build) > 0 && !q.Build[0].Finish.After(now) {
		head := q.Build[0]
		if head.Finish.After(t) {
			accrue(v, head.Finish.Sub(t))
			t = head.Finish
		}
		v.Buildings[head.Building]++
		q.Build = q.Build[1:]
		if len(q.Build) > 0 {
			q.Build[0].Finish = head.Finish.Add(q.Build[0].Duration)
		}
	}
	accrue(v, now.Sub(t))

	advanceResearch(v, now)
	advanceTraining(v, now)
}

func accrue(v *village.Village, d time.Duration) {
	if d <= 0 {
		return
	}
	economy.Accrue(v, d.Seconds())
	economy.RegenerateLoyalty(v, d.Seconds())
}

func advanceResearch(v *village.Village, now time.Time) {
	q := v.Queues.Research
	if len(q) > 0 && q[0].Finish.IsZero() {
		q[0].Finish = now.Add(q[0].Duration)
	}
	for len(q) > 0 && !q[0].Finish.After(now) {
		head := q[0]
		if v.Techs[head.Unit] < head.Level {
			v.Techs[head.Unit] = head.Level
		}
		q = q[1:]
		if len(q) > 0 {
			q[0].Finish = head.Finish.Add(q[0].Duration)
		}
	}
	v.Queues.Research = q
}

// advanceTraining produces units one at a time. An exhausted batch hands
// its last finish time to the next batch so no production time is lost.
func advanceTraining(v *village.Village, now time.Time) {
	for kind, batches := range v.Queues.Training {
		for len(batches) > 0 && batches[0].Count <= 0 {
			batches = batches[1:]
		}
		if len(batches) > 0 && batches[0].Finish.IsZero() {
			batches[0].Finish = now.Add(batches[0].UnitTime)
		}
		for len(batches) > 0 && !batches[0].Finish.After(now) {
			b := &batches[0]
			v.Units[b.Unit]++
			b.Count--
			if b.Count > 0 {
				b.Finish = b.Finish.Add(b.UnitTime)
				continue
			}
			last := b.Finish
			batches = batches[1:]
			if len(batches) > 0 {
				batches[0].Finish = last.Add(batches[0].UnitTime)
			}
		}
		v.Queues.Training[kind] = batches
	}
}

// QueueItem is one queue entry with its projected timing.
type QueueItem struct {
	Kind      village.QueueKind `json:"kind"`
	Index     int               `json:"index"`
	Target    string            `json:"target"`
	Count     int               `json:"count,omitempty"`
	Finish    time.Time         `json:"finish"`    // Completion of the whole entry
	Remaining time.Duration     `json:"remaining"` // From now
}

// QueueView lists a queue with finish estimates. Entries that have not
// started are projected to run back to back after the entry before them.
func (w *World) QueueView(id village.ID, kind village.QueueKind, now time.Time) ([]QueueItem, error) {
	v, ok := w.index[id]
	if !ok {
		return nil, reject(ErrVillageNotFound, "village %d", id)
	}
	if !w.validQueue(v, kind) {
		return nil, reject(ErrInvalidQueueEntry, "queue %q", kind)
	}
	var out []QueueItem
	start := now
	for i, e := range v.Queues.Entries(kind) {
		rem := e.Remaining(now, start)
		item := QueueItem{
			Kind:      kind,
			Index:     i,
			Target:    e.Target(),
			Finish:    now.Add(rem),
			Remaining: rem,
		}
		if b, ok := e.(village.TrainingBatch); ok {
			item.Count = b.Count
		}
		out = append(out, item)
		if item.Finish.After(start) {
			start = item.Finish
		}
	}
	return out, nil
}

// QueueKinds returns every queue a village has, build and research first.
func (w *World) QueueKinds(v *village.Village) []village.QueueKind {
	kinds := []village.QueueKind{village.QueueBuild, village.QueueResearch}
	var training []village.QueueKind
	for k := range v.Queues.Training {
		training = append(training, k)
	}
	sort.Slice(training, func(i, j int) bool { return training[i] < training[j] })
	return append(kinds, training...)
}

func (w *World) validQueue(v *village.Village, kind village.QueueKind) bool {
	if kind == village.QueueBuild || kind == village.QueueResearch {
		return true
	}
	_, ok := v.Queues.Training[kind]
	return ok
}
