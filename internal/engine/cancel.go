package engine

import (
	"time"

	"github.com/talgya/hinterland/internal/village"
)

// Cancellation is what a cancel gave back.
type Cancellation struct {
	Removed    int               `json:"removed"`
	Refund     village.Resources `json:"refund"`
	Population int               `json:"population"` // Released
}

// CancelQueueEntry removes entry index from a queue and refunds it.
//
// Cancelling a build order also cancels every later order for the same
// building, since their levels assumed this one would complete. Each is
// refunded at the price of the level it stood for. If the head is removed,
// the new head starts at now.
func (w *World) CancelQueueEntry(id village.ID, kind village.QueueKind, index int, now time.Time) (Cancellation, error) {
	v, ok := w.index[id]
	if !ok {
		return Cancellation{}, reject(ErrVillageNotFound, "village %d", id)
	}
	if !w.validQueue(v, kind) || index < 0 || index >= v.Queues.Len(kind) {
		return Cancellation{}, reject(ErrInvalidQueueEntry, "%s[%d]", kind, index)
	}

	var c Cancellation
	switch kind {
	case village.QueueBuild:
		c = w.cancelBuild(v, index)
		if index == 0 && len(v.Queues.Build) > 0 {
			v.Queues.Build[0].Finish = now.Add(v.Queues.Build[0].Duration)
		}
	case village.QueueResearch:
		q := v.Queues.Research
		c = Cancellation{Removed: 1, Refund: q[index].Cost}
		v.Queues.Research = append(q[:index:index], q[index+1:]...)
		if index == 0 && len(v.Queues.Research) > 0 {
			v.Queues.Research[0].Finish = now.Add(v.Queues.Research[0].Duration)
		}
	default:
		q := v.Queues.Training[kind]
		batch := q[index]
		c = Cancellation{Removed: 1}
		if def, ok := w.cat.Unit(batch.Unit); ok {
			c.Refund = village.FromCost(def.Cost).Scale(float64(batch.Count))
			c.Population = def.Population * batch.Count
		}
		q = append(q[:index:index], q[index+1:]...)
		if index == 0 && len(q) > 0 {
			q[0].Finish = now.Add(q[0].UnitTime)
		}
		v.Queues.Training[kind] = q
	}
	v.Resources = v.Resources.Add(c.Refund)
	return c, nil
}

func (w *World) cancelBuild(v *village.Village, index int) Cancellation {
	q := v.Queues.Build
	target := q[index].Building
	def, known := w.cat.Building(target)

	var c Cancellation
	kept := make([]village.BuildOrder, 0, len(q))
	before := 0 // Entries for target ahead of the one being looked at
	for i, o := range q {
		if o.Building != target {
			kept = append(kept, o)
			continue
		}
		if i < index {
			kept = append(kept, o)
			before++
			continue
		}
		if known {
			c.Refund = c.Refund.Add(village.FromCost(def.CostAt(v.Level(target) + before)))
		}
		c.Population += o.Population
		c.Removed++
		before++
	}
	v.Queues.Build = kept
	return c
}
