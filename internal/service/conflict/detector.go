package conflict

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// Kind classifies a detected conflict.
type Kind int

const (
	KindNone Kind = iota
	KindTimeOverlap
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeOverlap:
		return "time_overlap"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Result is the outcome of a conflict check.
type Result struct {
	Kind Kind

	// ConflictingID identifies the existing booking that blocks the
	// proposal, when Kind is not KindNone.
	ConflictingID uuid.UUID

	// Conflicting is the blocking interval itself, available to callers
	// that may bump tentative bookings.
	Conflicting *schedule.BookingInterval
}

// OK reports whether the proposal is free of conflicts.
func (r Result) OK() bool {
	return r.Kind == KindNone
}

// ResourceRegistry resolves shared-resource claims (equipment, vehicles) for
// a booking. No resource types are modeled yet; the hook exists so resource
// conflicts can be detected without changing the detector's contract.
type ResourceRegistry interface {
	// ClaimedBy returns the resource ids a booking would claim.
	ClaimedBy(proposed *schedule.BookingInterval) []string
}

// Detector validates a proposed booking against existing bookings. Detection
// is an advisory pre-check; atomicity is enforced by the orchestrator's
// per-professional exclusive section.
type Detector struct {
	buffer    time.Duration
	resources ResourceRegistry
}

// NewDetector creates a detector with the policy's buffer between jobs.
// The resource registry may be nil.
func NewDetector(buffer time.Duration, resources ResourceRegistry) *Detector {
	return &Detector{buffer: buffer, resources: resources}
}

// Check compares the proposed interval's buffered range against every
// non-cancelled interval of the same professional. Only the proposal is
// buffer-expanded, deliberately: the availability search pads each existing
// booking by the same single buffer when carving gaps, so expanding both
// sides here would demand two buffers of separation and reject slots the
// search legitimately offered. Do not "fix" this into double-buffering.
func (d *Detector) Check(proposed *schedule.BookingInterval, existing []*schedule.BookingInterval) Result {
	proposedWindow := proposed.BufferedWindow(d.buffer)

	for _, b := range existing {
		if !b.Active() || b.ID == proposed.ID {
			continue
		}
		if b.ProfessionalID != proposed.ProfessionalID {
			continue
		}
		if b.Window().Overlaps(proposedWindow) {
			return Result{
				Kind:          KindTimeOverlap,
				ConflictingID: b.ID,
				Conflicting:   b,
			}
		}
	}

	if d.resources != nil {
		if res := d.checkResources(proposed, existing); !res.OK() {
			return res
		}
	}

	return Result{Kind: KindNone}
}

func (d *Detector) checkResources(proposed *schedule.BookingInterval, existing []*schedule.BookingInterval) Result {
	claimed := d.resources.ClaimedBy(proposed)
	if len(claimed) == 0 {
		return Result{Kind: KindNone}
	}
	claimSet := make(map[string]struct{}, len(claimed))
	for _, id := range claimed {
		claimSet[id] = struct{}{}
	}

	for _, b := range existing {
		if !b.Active() || b.ID == proposed.ID {
			continue
		}
		if !b.Window().Overlaps(proposed.Window()) {
			continue
		}
		for _, id := range d.resources.ClaimedBy(b) {
			if _, clash := claimSet[id]; clash {
				return Result{
					Kind:          KindResource,
					ConflictingID: b.ID,
					Conflicting:   b,
				}
			}
		}
	}
	return Result{Kind: KindNone}
}
