package engine

import "errors"

// ErrRoundCount is returned when a build is requested with a round count
// outside the allowed 3–6 range.
var ErrRoundCount = errors.New("round count must be between 3 and 6")

// ErrEmptyRoster is returned when a build is requested with no eligible
// riders.  A race cannot be planned for nobody.
var ErrEmptyRoster = errors.New("no registered riders for this race")

// ErrDuplicateGate is returned by Plan.Validate when two entries of the same
// heat share a lane.  It cannot happen through BuildPlan itself; it guards
// against plans assembled or mutated outside the builder.
var ErrDuplicateGate = errors.New("duplicate gate number within a heat")

// ErrDuplicateFinishPos is returned by ComputeStandings when two finished-OK
// results in the same heat claim the same finish position.  The calculator
// refuses to guess a winner; the offending results must be corrected first.
var ErrDuplicateFinishPos = errors.New("duplicate finish position within a heat")

// ErrTooManyFinalists is returned when more riders than available lanes are
// passed to a final assignment.
var ErrTooManyFinalists = errors.New("more finalists than available gates")
