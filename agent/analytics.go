package agent

import (
	"context"
	"fmt"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/workflow"
)

const analyticsInstructions = "You are an analytics specialist. Ground every claim in the " +
	"collected metrics and keep reports short and decision-oriented."

const (
	stepCollectMetrics = "collect_metrics"
	stepGenerateReport = "generate_report"
)

func newAnalyticsDefinition(deps Deps) *workflow.Definition[*AnalyticsState] {
	collect := func(ctx context.Context, s *AnalyticsState) (*AnalyticsState, error) {
		if s.Metrics == nil {
			s.Metrics = map[string]float64{}
		}
		if len(s.Metrics) == 0 {
			s.Metrics["registrations"] = 180
			s.Metrics["budget_utilization_pct"] = 62.5
			s.Metrics["tasks_complete_pct"] = 40
		}
		s.CurrentPhase = stepCollectMetrics
		return s, nil
	}

	report := func(ctx context.Context, s *AnalyticsState) (*AnalyticsState, error) {
		s.Reports = append(s.Reports, Report{
			Title: fmt.Sprintf("Status report %d", len(s.Reports)+1),
			Summary: fmt.Sprintf("%d metrics tracked; registrations at %.0f, budget utilization %.1f%%.",
				len(s.Metrics), s.Metrics["registrations"], s.Metrics["budget_utilization_pct"]),
		})
		deps.recorder(ctx, s.Head()).TrackRecommendation(ctx, "status report",
			s.Reports[len(s.Reports)-1].Summary)
		s.CurrentPhase = stepGenerateReport
		return s, nil
	}

	reply := func(ctx context.Context, s *AnalyticsState) (*AnalyticsState, error) {
		latest := ""
		if len(s.Reports) > 0 {
			latest = s.Reports[len(s.Reports)-1].Summary
		}
		prompt := fmt.Sprintf("Latest report: %s Explain the key trend and what to watch next.", latest)
		if err := deps.generateReply(ctx, s.Head(), analyticsInstructions, prompt); err != nil {
			return s, err
		}
		s.CurrentPhase = stepComposeReply
		return s, nil
	}

	return workflow.MustCompile(
		workflow.NewBuilder[*AnalyticsState](string(TypeAnalytics)).
			AddNode(stepCollectMetrics, collect).
			AddNode(stepGenerateReport, report).
			AddNode(stepComposeReply, reply).
			AddEdge(stepCollectMetrics, stepGenerateReport).
			AddEdge(stepGenerateReport, stepComposeReply).
			AddEdge(stepComposeReply, workflow.End).
			SetEntryPoint(stepCollectMetrics).
			WithMaxIterations(deps.MaxIterations).
			WithLogger(deps.Logger).
			WithStepObserver(deps.Observer),
	)
}

func newAnalyticsState(organizationID int64) *AnalyticsState {
	return &AnalyticsState{Header: core.NewHeader(organizationID)}
}
