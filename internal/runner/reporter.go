package runner

import (
	"context"
	"storefront-e2e/internal/entity"
	"storefront-e2e/pkg/logg"

	"go.uber.org/zap"
)

const reporterName = "Reporter"

// LogReporter writes scenario results and the run summary as structured log
// lines.
type LogReporter struct {
	logger *zap.Logger
}

func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{
		logger: logger.With(zap.String(logg.Layer, reporterName)),
	}
}

func (r *LogReporter) Report(_ context.Context, result entity.ScenarioResult) {
	fields := []zap.Field{
		zap.String("id", result.ID.String()),
		zap.String(logg.Scenario, result.Name),
		zap.Strings("tags", result.Tags),
		zap.Int(logg.Worker, result.Worker),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", result.Duration),
	}

	switch result.Status {
	case entity.ScenarioPassed:
		r.logger.Info("Scenario passed", fields...)
	case entity.ScenarioInfraError:
		r.logger.Error("Scenario infrastructure error", append(fields, zap.String("code", result.Code), zap.String("error", result.Error))...)
	default:
		r.logger.Warn("Scenario failed", append(fields, zap.String("code", result.Code), zap.String("error", result.Error))...)
	}
}

func (r *LogReporter) Summarize(_ context.Context, summary entity.RunSummary) {
	fields := []zap.Field{
		zap.String(logg.RunID, summary.RunID.String()),
		zap.Int("total", len(summary.Results)),
		zap.Int("passed", summary.Count(entity.ScenarioPassed)),
		zap.Int("failed", summary.Count(entity.ScenarioFailed)),
		zap.Int("infra_errors", summary.Count(entity.ScenarioInfraError)),
		zap.Duration("duration", summary.Duration),
	}

	if summary.Passed() {
		r.logger.Info("Run finished", fields...)

		return
	}

	r.logger.Warn("Run finished with failures", fields...)
}
