package model

import (
	"context"
)

// Analyzer defines the standard interface for an AI analyzer.
type Analyzer interface {
	// AnalyzeReport receives a rendered run report and returns the model's commentary as markdown.
	AnalyzeReport(ctx context.Context, report string) (string, error)
}
