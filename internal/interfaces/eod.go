package interfaces

import "context"

// Exporter writes an agent's ledger history as a report.
type Exporter interface {
	Export(ctx context.Context, l Ledger) (csvPath string, err error)
}
