package engine

import (
	"errors"
	"fmt"
)

// Business-rule rejections. Actions return them wrapped in a *Rejection and
// leave the world untouched.
var (
	ErrVillageNotFound        = errors.New("village not found")
	ErrUnknownBuilding        = errors.New("unknown building")
	ErrUnknownUnit            = errors.New("unknown unit")
	ErrUnitDisabled           = errors.New("unit disabled")
	ErrMaxLevel               = errors.New("level at maximum")
	ErrMissingPrerequisite    = errors.New("missing prerequisite building")
	ErrQueueFull              = errors.New("queue full")
	ErrInsufficientResources  = errors.New("insufficient resources")
	ErrInsufficientPopulation = errors.New("insufficient population")
	ErrInvalidCount           = errors.New("invalid count")
	ErrInvalidQueueEntry      = errors.New("invalid queue entry")
	ErrNotEnoughUnits         = errors.New("not enough units")
	ErrNoMarket               = errors.New("market required")
	ErrMarketCapacity         = errors.New("market capacity exceeded")
	ErrSameVillage            = errors.New("origin and target are the same village")
	ErrInvalidMission         = errors.New("invalid mission")
	ErrStackNotFound          = errors.New("support stack not found")
	ErrTargetVanished         = errors.New("target vanished")
	ErrOutOfBounds            = errors.New("coordinate out of bounds")
	ErrInvalidName            = errors.New("invalid name")
	ErrNotOwned               = errors.New("village not owned")
)

var reasons = map[error]string{
	ErrVillageNotFound:        "village_not_found",
	ErrUnknownBuilding:        "unknown_building",
	ErrUnknownUnit:            "unknown_unit",
	ErrUnitDisabled:           "unit_disabled",
	ErrMaxLevel:               "max_level",
	ErrMissingPrerequisite:    "missing_prerequisite",
	ErrQueueFull:              "queue_full",
	ErrInsufficientResources:  "insufficient_resources",
	ErrInsufficientPopulation: "insufficient_population",
	ErrInvalidCount:           "invalid_count",
	ErrInvalidQueueEntry:      "invalid_queue_entry",
	ErrNotEnoughUnits:         "not_enough_units",
	ErrNoMarket:               "no_market",
	ErrMarketCapacity:         "market_capacity",
	ErrSameVillage:            "same_village",
	ErrInvalidMission:         "invalid_mission",
	ErrStackNotFound:          "stack_not_found",
	ErrTargetVanished:         "target_vanished",
	ErrOutOfBounds:            "out_of_bounds",
	ErrInvalidName:            "invalid_name",
	ErrNotOwned:               "not_owned",
}

// Rejection is the typed outcome of a refused action. Reason is a stable
// machine-readable code; Detail says what exactly was wrong.
type Rejection struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
	Err    error  `json:"-"`
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return r.Err.Error()
	}
	return r.Err.Error() + ": " + r.Detail
}

func (r *Rejection) Unwrap() error { return r.Err }

func reject(err error, format string, args ...any) *Rejection {
	reason, ok := reasons[err]
	if !ok {
		reason = "rejected"
	}
	r := &Rejection{Reason: reason, Err: err}
	if format != "" {
		r.Detail = fmt.Sprintf(format, args...)
	}
	return r
}

// AsRejection extracts the rejection from err, if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	ok := errors.As(err, &r)
	return r, ok
}
