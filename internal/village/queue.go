package village

import (
	"time"

	"github.com/talgya/hinterland/internal/catalog"
)

// QueueKind names one of a village's production queues.
type QueueKind string

const (
	QueueBuild    QueueKind = "build"
	QueueResearch QueueKind = "research"
)

// TrainingQueue is the queue kind for units trained in building b.
func TrainingQueue(b catalog.BuildingID) QueueKind {
	return QueueKind(b)
}

// BuildOrder is a construction entry. Finish stays zero until the entry
// reaches the head of the queue.
type BuildOrder struct {
	Building   catalog.BuildingID `json:"building"`
	Duration   time.Duration      `json:"duration"`
	Finish     time.Time          `json:"finish,omitzero"`
	Population int                `json:"population"` // Reserved at order time
}

// ResearchOrder raises one unit's tech level.
type ResearchOrder struct {
	Unit     catalog.UnitID `json:"unit"`
	Level    int            `json:"level"` // Level reached on completion
	Duration time.Duration  `json:"duration"`
	Finish   time.Time      `json:"finish,omitzero"`
	Cost     Resources      `json:"cost"` // Paid at order time, refunded on cancel
}

// TrainingBatch produces Count units one at a time. Finish is when the next
// single unit is done, not the whole batch.
type TrainingBatch struct {
	Unit     catalog.UnitID `json:"unit"`
	Count    int            `json:"count"`
	UnitTime time.Duration  `json:"unit_time"`
	Finish   time.Time      `json:"finish,omitzero"`
}

// Entry is the read-only view shared by every queue entry variant.
type Entry interface {
	Target() string
	// Remaining is the time left for the whole entry as seen at now,
	// assuming it starts at start when it has no finish yet.
	Remaining(now, start time.Time) time.Duration
}

func (o BuildOrder) Target() string { return string(o.Building) }

func (o BuildOrder) Remaining(now, start time.Time) time.Duration {
	return remaining(o.Finish, start.Add(o.Duration), now)
}

func (o ResearchOrder) Target() string { return string(o.Unit) }

func (o ResearchOrder) Remaining(now, start time.Time) time.Duration {
	return remaining(o.Finish, start.Add(o.Duration), now)
}

func (b TrainingBatch) Target() string { return string(b.Unit) }

func (b TrainingBatch) Remaining(now, start time.Time) time.Duration {
	if b.Count <= 0 {
		return 0
	}
	last := start.Add(time.Duration(b.Count) * b.UnitTime)
	if !b.Finish.IsZero() {
		last = b.Finish.Add(time.Duration(b.Count-1) * b.UnitTime)
	}
	return remaining(time.Time{}, last, now)
}

func remaining(finish, projected, now time.Time) time.Duration {
	end := projected
	if !finish.IsZero() {
		end = finish
	}
	if d := end.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Queues holds every production queue of a village.
type Queues struct {
	Build    []BuildOrder                  `json:"build"`
	Research []ResearchOrder               `json:"research"`
	Training map[QueueKind][]TrainingBatch `json:"training"`
}

// NewQueues returns empty queues with a slot for each training building.
func NewQueues(cat *catalog.Catalog) Queues {
	q := Queues{Training: make(map[QueueKind][]TrainingBatch)}
	for _, b := range cat.TrainingBuildings() {
		q.Training[TrainingQueue(b)] = nil
	}
	return q
}

// Entries returns the queue of the given kind as a uniform view.
func (q *Queues) Entries(kind QueueKind) []Entry {
	var out []Entry
	switch kind {
	case QueueBuild:
		for _, o := range q.Build {
			out = append(out, o)
		}
	case QueueResearch:
		for _, o := range q.Research {
			out = append(out, o)
		}
	default:
		for _, b := range q.Training[kind] {
			out = append(out, b)
		}
	}
	return out
}

// Len is the number of entries in the queue of the given kind.
func (q *Queues) Len(kind QueueKind) int {
	switch kind {
	case QueueBuild:
		return len(q.Build)
	case QueueResearch:
		return len(q.Research)
	default:
		return len(q.Training[kind])
	}
}

// Clone deep-copies the queues.
func (q Queues) Clone() Queues {
	out := Queues{
		Build:    append([]BuildOrder(nil), q.Build...),
		Research: append([]ResearchOrder(nil), q.Research...),
		Training: make(map[QueueKind][]TrainingBatch, len(q.Training)),
	}
	for k, batches := range q.Training {
		out.Training[k] = append([]TrainingBatch(nil), batches...)
	}
	return out
}

// QueuedBuilds counts build entries for b.
func (q *Queues) QueuedBuilds(b catalog.BuildingID) int {
	n := 0
	for _, o := range q.Build {
		if o.Building == b {
			n++
		}
	}
	return n
}

// QueuedResearch counts research entries for u.
func (q *Queues) QueuedResearch(u catalog.UnitID) int {
	n := 0
	for _, o := range q.Research {
		if o.Unit == u {
			n++
		}
	}
	return n
}

// ReservedPopulation sums the population reserved by build orders.
func (q *Queues) ReservedPopulation() int {
	n := 0
	for _, o := range q.Build {
		n += o.Population
	}
	return n
}

// TrainingUnits is every unit still waiting in a training batch.
func (q *Queues) TrainingUnits() Units {
	out := make(Units)
	for _, batches := range q.Training {
		for _, b := range batches {
			out[b.Unit] += b.Count
		}
	}
	return out.Compact()
}
