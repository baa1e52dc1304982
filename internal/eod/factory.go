package eod

import (
	"context"

	"astock-agent/internal/interfaces"
)

// ExportAll exports every ledger and returns the written paths, skipping
// empty ledgers.
func ExportAll(ctx context.Context, e interfaces.Exporter, ledgers []interfaces.Ledger) ([]string, error) {
	var paths []string
	for _, l := range ledgers {
		p, err := e.Export(ctx, l)
		if err != nil {
			return paths, err
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}
