// Package history persists the terminal record of each research lineage.
// The engine writes one record per run at terminal status; a store failure
// there is logged by the caller, never fatal to the run itself.
package history

import (
	"errors"

	"github.com/petrijr/deepdive/pkg/api"
)

// ErrRunNotFound is returned when a run record is not found.
var ErrRunNotFound = errors.New("run not found")

// Store handles storage of run records.
type Store interface {
	SaveRun(rec api.RunRecord) error
	GetRun(id string) (api.RunRecord, error)
	ListRuns(filter api.RunFilter) ([]api.RunRecord, error)
}
