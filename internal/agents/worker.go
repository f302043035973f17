// Package agents provides the worker execution loop: the per-tick state
// machine that claims jobs from the faction blackboard, routes across the
// map, performs the work, and reports back into the job pool.
package agents

import (
	"github.com/talgya/freehold/internal/jobs"
	"github.com/talgya/freehold/internal/world"
)

// Role determines which job kinds a worker can claim.
type Role uint8

const (
	RoleVillager Role = iota // COLLECT and BUILD
	RoleCaravan              // TRADE and TRANSFER
)

// State is the coarse worker state. Finer-grained activity lives in Activity;
// the two together make illegal combinations unrepresentable: transitions
// only happen through the named methods below.
type State uint8

const (
	StateIdle      State = iota
	StateBusy            // Traveling to or working at a job site
	StateReturning       // Heading home with nothing left to do
)

// Activity is the sub-state within StateBusy.
type Activity uint8

const (
	ActivityNone Activity = iota
	ActivityTraveling
	ActivityGathering
	ActivityBuilding
	ActivityLoading
)

// leg tracks which stretch of the mission a traveling worker is on.
type leg uint8

const (
	legNone    leg = iota
	legOutward     // Toward the pickup point or work site
	legDeliver     // Toward the settlement receiving the cargo
)

// Worker is one autonomous laborer serving a faction.
type Worker struct {
	ID         uint64
	Name       string
	Role       Role
	FactionID  uint64
	HomeSettID uint64
	Position   world.HexCoord
	Capacity   int

	Cargo    int
	CargoRes world.ResourceType

	state    State
	activity Activity
	leg      leg
	route    []world.HexCoord

	jobKey  string
	jobKind jobs.Kind
	claimed int
	worked  int    // Build progress accumulated at the site
	dropID  uint64 // Settlement receiving the cargo / report
}

// NewWorker creates an idle worker homed at the given settlement.
func NewWorker(id uint64, name string, role Role, factionID, homeSettID uint64, pos world.HexCoord, capacity int) *Worker {
	return &Worker{
		ID:         id,
		Name:       name,
		Role:       role,
		FactionID:  factionID,
		HomeSettID: homeSettID,
		Position:   pos,
		Capacity:   capacity,
	}
}

// State returns the coarse state.
func (w *Worker) State() State { return w.state }

// Activity returns the busy sub-state.
func (w *Worker) Activity() Activity { return w.activity }

// JobKey returns the key of the claimed ticket, or "" when idle.
func (w *Worker) JobKey() string { return w.jobKey }

// Kinds returns the job kinds this worker's role can execute.
func (w *Worker) Kinds() jobs.KindSet {
	if w.Role == RoleCaravan {
		return jobs.KindsOf(jobs.KindTrade, jobs.KindTransfer)
	}
	return jobs.KindsOf(jobs.KindCollect, jobs.KindBuild)
}

// bidder builds the dispatcher's view of this worker.
func (w *Worker) bidder() jobs.Bidder {
	return jobs.Bidder{Position: w.Position, Capacity: w.Capacity, Kinds: w.Kinds()}
}

// startJob transitions Idle → Busy on a successful claim, heading out along
// the given route. dropID is where cargo (or the completion report) lands.
func (w *Worker) startJob(t *jobs.Ticket, claimed int, route []world.HexCoord, dropID uint64) {
	w.jobKey = t.Key
	w.jobKind = t.Kind
	w.claimed = claimed
	w.worked = 0
	w.dropID = dropID
	w.route = route
	w.state = StateBusy
	w.activity = ActivityTraveling
	w.leg = legOutward
}

// beginWork transitions Traveling → the kind-appropriate work activity once
// the outward route is exhausted.
func (w *Worker) beginWork() {
	switch w.jobKind {
	case jobs.KindCollect:
		w.activity = ActivityGathering
	case jobs.KindBuild:
		w.activity = ActivityBuilding
	default:
		w.activity = ActivityLoading
	}
	w.leg = legNone
}

// startDeliver transitions work → Busy/Traveling toward the drop settlement.
func (w *Worker) startDeliver(route []world.HexCoord) {
	w.route = route
	w.activity = ActivityTraveling
	w.leg = legDeliver
}

// startReturn transitions into Returning along the given route home.
func (w *Worker) startReturn(route []world.HexCoord) {
	w.clearJob()
	w.route = route
	w.state = StateReturning
	w.activity = ActivityTraveling
}

// settle transitions to Idle in place, with no job and no route.
func (w *Worker) settle() {
	w.clearJob()
	w.route = nil
	w.state = StateIdle
	w.activity = ActivityNone
}

func (w *Worker) clearJob() {
	w.jobKey = ""
	w.claimed = 0
	w.worked = 0
	w.dropID = 0
	w.leg = legNone
}

// step advances one hex along the current route and reports whether the
// route is now exhausted.
func (w *Worker) step() bool {
	if len(w.route) > 0 {
		w.Position = w.route[0]
		w.route = w.route[1:]
	}
	return len(w.route) == 0
}
