package position

import (
	"math"
	"time"

	"github.com/rs/zerolog"
)

const (
	sizeTolerance  = 1e-4 // absolute contracts
	entryTolerance = 5e-3 // relative, 0.5%

	failureThreshold = 2
	freezeDuration   = 60 * time.Second
)

// Outcome classifies one reconciliation pass.
type Outcome string

const (
	// OutcomeMatch means the local and authoritative views agree; the
	// local view is refreshed from the authoritative values.
	OutcomeMatch Outcome = "match"
	// OutcomeAdopted means the local view was simply stale (one side flat,
	// the other not) and the authoritative view was adopted outright.
	OutcomeAdopted Outcome = "adopted"
	// OutcomeMismatch is a genuine conflict; repeated mismatches freeze
	// trading.
	OutcomeMismatch Outcome = "mismatch"
)

// Reconciler keeps the optimistic local position aligned with the venue's
// authoritative reports. All methods must be called from the engine's event
// loop; the reconciler holds no lock of its own.
type Reconciler struct {
	log zerolog.Logger

	local       Position
	authority   Position
	failures    int
	frozenUntil time.Time

	onFreeze func(until time.Time)
}

// NewReconciler builds a reconciler starting from a flat local view.
func NewReconciler(log zerolog.Logger) *Reconciler {
	return &Reconciler{log: log, local: Position{Side: Flat}}
}

// OnFreeze registers a callback invoked when repeated mismatches freeze
// trading.
func (r *Reconciler) OnFreeze(fn func(until time.Time)) { r.onFreeze = fn }

// Local returns the current local position view.
func (r *Reconciler) Local() Position { return r.local }

// SetLocal overwrites the local view; called optimistically the instant an
// order is submitted or a close confirms.
func (r *Reconciler) SetLocal(p Position) { r.local = p }

// MarkPending flags the local view as having an order in flight.
func (r *Reconciler) MarkPending() { r.local.PendingOrder = true }

// Frozen reports whether trading is currently frozen. Crossing the unfreeze
// instant resets the failure counter.
func (r *Reconciler) Frozen(now time.Time) bool {
	if r.frozenUntil.IsZero() {
		return false
	}
	if now.Before(r.frozenUntil) {
		return true
	}
	r.frozenUntil = time.Time{}
	r.failures = 0
	r.log.Info().Msg("reconcile freeze lifted")
	return false
}

// FrozenUntil returns the freeze deadline, zero when not frozen.
func (r *Reconciler) FrozenUntil() time.Time { return r.frozenUntil }

// Failures returns the consecutive mismatch count.
func (r *Reconciler) Failures() int { return r.failures }

// Apply folds one authoritative report into the reconciler and returns how
// it was classified.
func (r *Reconciler) Apply(rep Report) Outcome {
	auth := Position{
		Side:       rep.Side(),
		Size:       rep.Size(),
		EntryPrice: rep.EntryPrice,
		OpenedAt:   r.local.OpenedAt,
	}

	r.authority = auth

	switch {
	case auth.IsFlat() && r.local.IsFlat():
		r.adopt(auth)
		r.failures = 0
		return OutcomeMatch

	case auth.IsFlat() != r.local.IsFlat():
		// The local view is stale, not conflicting: the venue closed (or
		// opened) something we have not observed yet. Authoritative wins
		// immediately and this is not a failure.
		localSide := r.local.Side
		if !auth.IsFlat() && auth.OpenedAt.IsZero() {
			auth.OpenedAt = rep.At
		}
		r.adopt(auth)
		r.failures = 0
		r.log.Warn().
			Str("local_side", string(localSide)).
			Str("auth_side", string(auth.Side)).
			Msg("stale local position, adopting authoritative view")
		return OutcomeAdopted
	}

	sideMatch := auth.Side == r.local.Side
	sizeMatch := math.Abs(auth.Size-r.local.Size) <= sizeTolerance
	entryMatch := true
	if auth.EntryPrice != 0 {
		entryMatch = relDiff(auth.EntryPrice, r.local.EntryPrice) <= entryTolerance
	}

	if sideMatch && sizeMatch && entryMatch {
		r.adopt(auth)
		r.failures = 0
		return OutcomeMatch
	}

	r.failures++
	r.log.Warn().
		Int("failures", r.failures).
		Bool("side_match", sideMatch).
		Bool("size_match", sizeMatch).
		Bool("entry_match", entryMatch).
		Msg("position reconciliation mismatch")

	if r.failures >= failureThreshold && r.frozenUntil.IsZero() {
		r.frozenUntil = rep.At.Add(freezeDuration)
		r.log.Error().Time("until", r.frozenUntil).Msg("trading frozen after repeated reconcile failures")
		if r.onFreeze != nil {
			r.onFreeze(r.frozenUntil)
		}
	}
	return OutcomeMismatch
}

// adopt overwrites the local view. Any fresh authoritative report clears a
// pending-order marker: the order either shows in the reported size or was
// never placed.
func (r *Reconciler) adopt(auth Position) {
	if auth.Side == r.local.Side && !r.local.OpenedAt.IsZero() {
		auth.OpenedAt = r.local.OpenedAt
	}
	auth.PendingOrder = false
	r.local = auth
}

func relDiff(a, b float64) float64 {
	if a == 0 {
		return math.Abs(b)
	}
	return math.Abs(a-b) / math.Abs(a)
}
