package eodobs

import (
	"context"

	"astock-agent/internal/interfaces"
	"astock-agent/internal/logger"
	"astock-agent/internal/trace"
)

type observableExporter struct {
	exporter interfaces.Exporter
}

var _ interfaces.Exporter = (*observableExporter)(nil)

func Wrap(exporter interfaces.Exporter) interfaces.Exporter {
	return &observableExporter{
		exporter: exporter,
	}
}

func (oe *observableExporter) Export(ctx context.Context, l interfaces.Ledger) (string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.Export")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting ledger export", "agent", l.Agent())

	csvPath, err := oe.exporter.Export(ctx, l)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Ledger export failed", err, "agent", l.Agent())
		return "", err
	}

	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No snapshots to export", "agent", l.Agent())
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "Ledger export written",
		"agent", l.Agent(),
		"csv_path", csvPath,
	)
	return csvPath, nil
}
