package store

import (
	"fmt"
	"time"

	"github.com/manvip28/Eval-Me-Maybe/internal/model"
)

// ExportAllRuns builds an export of every stored run with its results,
// oldest first.
func (s *Store) ExportAllRuns() (model.RunExport, error) {
	infos, err := s.ListRuns()
	if err != nil {
		return model.RunExport{}, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]model.Run, 0, len(infos))
	for i := len(infos) - 1; i >= 0; i-- {
		run, err := s.GetRun(infos[i].ID)
		if err != nil {
			return model.RunExport{}, fmt.Errorf("get run %s: %w", infos[i].ID, err)
		}
		if run != nil {
			runs = append(runs, *run)
		}
	}

	return model.RunExport{
		ExportedAt: time.Now().UTC(),
		NumRuns:    len(runs),
		Runs:       runs,
	}, nil
}
