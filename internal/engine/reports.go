package engine

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/combat"
	"github.com/talgya/hinterland/internal/village"
)

// ReportKind classifies a report from the player's side.
type ReportKind string

const (
	ReportWin     ReportKind = "win"
	ReportLoss    ReportKind = "loss"
	ReportNeutral ReportKind = "neutral"
)

// Intel is what surviving scouts saw, by tier.
type Intel struct {
	Resources *village.Resources         `json:"resources,omitempty"`
	Buildings map[catalog.BuildingID]int `json:"buildings,omitempty"`
	Away      village.Units              `json:"away,omitempty"`
}

// Report is the immutable record of a resolved mission.
type Report struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Time     time.Time     `json:"time"`
	Kind     ReportKind    `json:"kind"`
	Mission  MissionType   `json:"mission"`
	Origin   village.ID    `json:"origin"`
	Target   village.ID    `json:"target"`
	Attacker village.Owner `json:"attacker,omitempty"`
	Defender village.Owner `json:"defender,omitempty"`
	Vanished bool          `json:"vanished,omitempty"` // Target gone before arrival

	Units     village.Units     `json:"units,omitempty"`
	Resources village.Resources `json:"resources"`
	Battle    *combat.Result    `json:"battle,omitempty"`
	Intel     *Intel            `json:"intel,omitempty"`
}

// Involves reports whether the report concerns village id.
func (r Report) Involves(id village.ID) bool {
	return r.Origin == id || r.Target == id
}

// addReport prepends r to the history, dropping the oldest beyond the cap.
func (w *World) addReport(r Report) {
	w.Reports = append([]Report{r}, w.Reports...)
	if limit := w.cfg.Sim.MaxReports; limit > 0 && len(w.Reports) > limit {
		w.Reports = w.Reports[:limit]
	}
	if w.onReport != nil {
		w.onReport(r)
	}
}

func (w *World) newReport(m *Mission) Report {
	return Report{
		ID:       uuid.NewString(),
		Time:     m.Arrival,
		Kind:     ReportNeutral,
		Mission:  m.Type,
		Origin:   m.Origin,
		Target:   m.Target,
		Attacker: m.Owner,
	}
}

// movementReport records a mission that did not fight. A nil target marks
// troops that found their destination gone.
func (w *World) movementReport(m *Mission, origin, target *village.Village) Report {
	r := w.newReport(m)
	r.Units = m.Units.Clone().Compact()
	r.Resources = m.Resources
	from, to := w.nameOf(origin, m.Origin), w.nameOf(target, m.Target)
	if target != nil {
		r.Defender = target.Owner
	}

	switch {
	case m.Type == MissionReturn && origin == nil:
		r.Kind = ReportLoss
		r.Title = fmt.Sprintf("Troops returning from %s found no home", to)
	case m.Type == MissionReturn:
		r.Title = fmt.Sprintf("%s troops returned to %s", humanize.Comma(int64(r.Units.Total())), from)
	case target == nil:
		r.Vanished = true
		if m.Type == MissionTransport {
			r.Title = fmt.Sprintf("Transport from %s was lost: target vanished", from)
		} else {
			r.Title = fmt.Sprintf("Troops from %s came home: target vanished", from)
		}
	case m.Type == MissionTransport:
		r.Title = fmt.Sprintf("%s delivered %s resources to %s", from, humanize.Comma(int64(m.Resources.Total())), to)
	default:
		r.Title = fmt.Sprintf("%s troops from %s arrived at %s", humanize.Comma(int64(r.Units.Total())), from, to)
	}
	return r
}

func (w *World) battleReport(m *Mission, origin, target *village.Village, defender village.Owner, res combat.Result, intel *Intel) Report {
	r := w.newReport(m)
	r.Defender = defender
	r.Units = res.AttackersBefore
	r.Resources = res.Loot
	r.Intel = intel

	from, to := w.nameOf(origin, m.Origin), w.nameOf(target, m.Target)
	scouting := res.ScoutsSent > 0 && res.ScoutsSent == res.AttackersBefore.Total()
	succeeded := res.AttackerWon || (scouting && res.ScoutWin)
	switch {
	case m.Owner.IsPlayer():
		r.Kind = ReportLoss
		if succeeded {
			r.Kind = ReportWin
		}
	case defender.IsPlayer():
		r.Kind = ReportWin
		if succeeded {
			r.Kind = ReportLoss
		}
	}

	battle := res
	if m.Owner.IsPlayer() && !res.AttackerWon && !res.ScoutWin {
		// The attackers never came back to tell.
		battle.DefendersBefore = nil
		battle.DefendersAfter = nil
		battle.Defense = 0
	}
	r.Battle = &battle

	switch {
	case res.Conquered:
		r.Title = fmt.Sprintf("%s conquered %s", from, to)
	case scouting:
		r.Title = fmt.Sprintf("%s scouted %s", from, to)
	default:
		r.Title = fmt.Sprintf("%s attacks %s", from, to)
	}
	return r
}

func (w *World) nameOf(v *village.Village, id village.ID) string {
	if v != nil {
		return fmt.Sprintf("%s (%d|%d)", v.Name, v.X, v.Y)
	}
	return fmt.Sprintf("village %d", id)
}

// ReportsFor returns the history touching village id, all when id is zero.
func (w *World) ReportsFor(id village.ID, limit int) []Report {
	var out []Report
	for _, r := range w.Reports {
		if id != 0 && !r.Involves(id) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
