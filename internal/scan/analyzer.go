package scan

import (
	"context"
	"time"

	"github.com/spec-kit/retina-portal/internal/domain"
)

// Analyzer is the pluggable disease-analysis collaborator. The workflow
// assumes nothing about its latency or algorithm beyond "eventually resolves
// with a result or fails", so a real inference backend can replace the stub
// without touching the surrounding state machine.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (domain.AnalysisResult, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, image []byte) (domain.AnalysisResult, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, image []byte) (domain.AnalysisResult, error) {
	return f(ctx, image)
}

// StubAnalyzer is the stand-in used until a real inference backend is wired.
// It waits a fixed delay and resolves with a canned result.
type StubAnalyzer struct {
	Delay  time.Duration
	Result domain.AnalysisResult
}

// NewStubAnalyzer returns the default stand-in.
func NewStubAnalyzer() *StubAnalyzer {
	return &StubAnalyzer{
		Delay: 2 * time.Second,
		Result: domain.AnalysisResult{
			DiseaseDetected: "Mild Diabetic Retinopathy",
			DiseaseLevel:    domain.DiseaseLevelMild,
			ConfidenceScore: 87.5,
		},
	}
}

func (a *StubAnalyzer) Analyze(ctx context.Context, _ []byte) (domain.AnalysisResult, error) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return domain.AnalysisResult{}, ctx.Err()
		}
	}
	return a.Result, nil
}
