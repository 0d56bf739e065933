package agent

import (
	"context"
	"fmt"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/workflow"
)

const financialInstructions = "You are a financial planning specialist. Keep the budget " +
	"balanced, surface overruns early, and explain allocations plainly."

const (
	stepReviewBudget  = "review_budget"
	stepAllocateFunds = "allocate_funds"
	stepFlagOverrun   = "flag_overrun"
)

func newFinancialDefinition(deps Deps) *workflow.Definition[*FinancialState] {
	review := func(ctx context.Context, s *FinancialState) (*FinancialState, error) {
		if s.TotalBudget == 0 {
			s.TotalBudget = 25000
		}
		if s.Allocations == nil {
			s.Allocations = map[string]float64{}
		}
		s.CurrentPhase = stepReviewBudget
		return s, nil
	}

	allocate := func(ctx context.Context, s *FinancialState) (*FinancialState, error) {
		if s.Allocations == nil {
			s.Allocations = map[string]float64{}
		}
		if len(s.Allocations) == 0 {
			s.Allocations["venue"] = s.TotalBudget * 0.4
			s.Allocations["catering"] = s.TotalBudget * 0.3
			s.Allocations["marketing"] = s.TotalBudget * 0.2
			s.Allocations["contingency"] = s.TotalBudget * 0.1
			deps.recorder(ctx, s.Head()).TrackDecision(ctx, "split budget 40/30/20/10", "standard event profile")
		}
		s.CurrentPhase = stepAllocateFunds
		return s, nil
	}

	flag := func(ctx context.Context, s *FinancialState) (*FinancialState, error) {
		overrun := spentTotal(s) - s.TotalBudget
		s.AppendEphemeral(core.RoleSystem, fmt.Sprintf("budget overrun of %.2f detected", overrun))
		deps.recorder(ctx, s.Head()).TrackDecision(ctx, "flag budget overrun", fmt.Sprintf("spend exceeds budget by %.2f", overrun))
		s.CurrentPhase = stepFlagOverrun
		return s, nil
	}

	reply := func(ctx context.Context, s *FinancialState) (*FinancialState, error) {
		prompt := fmt.Sprintf("Total budget %.2f, spent so far %.2f across %d expenses. Report budget health and next approvals needed.",
			s.TotalBudget, spentTotal(s), len(s.Expenses))
		if err := deps.generateReply(ctx, s.Head(), financialInstructions, prompt); err != nil {
			return s, err
		}
		s.CurrentPhase = stepComposeReply
		return s, nil
	}

	return workflow.MustCompile(
		workflow.NewBuilder[*FinancialState](string(TypeFinancial)).
			AddNode(stepReviewBudget, review).
			AddNode(stepAllocateFunds, allocate).
			AddNode(stepFlagOverrun, flag).
			AddNode(stepComposeReply, reply).
			AddConditionalEdge(stepReviewBudget, func(s *FinancialState) string {
				if spentTotal(s) > s.TotalBudget {
					return stepFlagOverrun
				}
				return stepAllocateFunds
			}).
			AddEdge(stepAllocateFunds, stepComposeReply).
			AddEdge(stepFlagOverrun, stepComposeReply).
			AddEdge(stepComposeReply, workflow.End).
			SetEntryPoint(stepReviewBudget).
			WithMaxIterations(deps.MaxIterations).
			WithLogger(deps.Logger).
			WithStepObserver(deps.Observer),
	)
}

func spentTotal(s *FinancialState) float64 {
	var total float64
	for _, e := range s.Expenses {
		total += e.Amount
	}
	return total
}

func newFinancialState(organizationID int64) *FinancialState {
	return &FinancialState{Header: core.NewHeader(organizationID)}
}
