// Package model holds the filter, catalog, and history types shared by the
// explorer and its presentation surfaces.
package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Horizons offered by the default catalog.
const (
	HorizonOneYear   = "one_year"
	HorizonThreeYear = "three_year"
)

var (
	// ErrUnknownField is returned for a field outside the catalog.
	ErrUnknownField = eris.New("unknown field")
	// ErrUnknownHorizon is returned for a horizon outside the catalog.
	ErrUnknownHorizon = eris.New("unknown horizon")
)

// Filter selects a shortlist.
type Filter struct {
	Field   string `json:"field"`
	Horizon string `json:"horizon"`
}

func (f Filter) String() string {
	return fmt.Sprintf("%s/%s", f.Field, f.Horizon)
}

// IsZero reports whether no filter has been applied yet.
func (f Filter) IsZero() bool {
	return f.Field == "" && f.Horizon == ""
}
