package planner

import (
	"time"

	"github.com/yairfalse/varusta/types"
)

// Plan is an ordered list of decisions. Security group work always precedes
// instance work so the dependency edge (group exists before instances
// reference it) is preserved.
type Plan struct {
	CreatedAt time.Time        `json:"created_at"`
	Decisions []types.Decision `json:"decisions"`
}

// HasChanges reports whether applying the plan would touch the cloud.
func (p *Plan) HasChanges() bool {
	for _, d := range p.Decisions {
		if d.Action != types.ActionNoop {
			return true
		}
	}
	return false
}

// Summary counts decisions by action.
type Summary struct {
	Creates  int `json:"creates"`
	Updates  int `json:"updates"`
	Replaces int `json:"replaces"`
	Deletes  int `json:"deletes"`
}

// Summarize tallies the plan's decisions.
func (p *Plan) Summarize() Summary {
	var s Summary
	for _, d := range p.Decisions {
		switch d.Action {
		case types.ActionCreate:
			s.Creates++
		case types.ActionUpdate:
			s.Updates++
		case types.ActionReplace:
			s.Replaces++
		case types.ActionDelete:
			s.Deletes++
		}
	}
	return s
}

// driftKind categorizes instance drift.
type driftKind int

const (
	driftNone driftKind = iota
	driftInPlace
	driftReplace
)
