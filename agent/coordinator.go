package agent

import (
	"context"
	"fmt"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/workflow"
)

const coordinatorInstructions = "You are the coordinator of a multi-agent event planning session. " +
	"Understand the user's goal, keep track of gathered requirements, and explain which " +
	"specialist agents will handle what."

// Step names double as the currentPhase markers stored with the conversation.
const (
	stepUnderstandRequest  = "understand_request"
	stepGatherRequirements = "gather_requirements"
	stepPlanDelegation     = "plan_delegation"
	stepComposeReply       = "compose_reply"
)

func newCoordinatorDefinition(deps Deps) *workflow.Definition[*CoordinatorState] {
	understand := func(ctx context.Context, s *CoordinatorState) (*CoordinatorState, error) {
		if s.PlanningStage == "" {
			s.PlanningStage = "discovery"
		}
		s.CurrentPhase = stepUnderstandRequest
		return s, nil
	}

	gather := func(ctx context.Context, s *CoordinatorState) (*CoordinatorState, error) {
		if s.Requirements == nil {
			s.Requirements = map[string]any{}
		}
		if request, ok := s.LastUserMessage(); ok {
			s.Requirements["latest_request"] = request
			deps.recorder(ctx, s.Head()).TrackClarification(ctx, "what does the user need?", request)
		}
		s.NextSteps = []string{stepPlanDelegation}
		s.CurrentPhase = stepGatherRequirements
		return s, nil
	}

	delegate := func(ctx context.Context, s *CoordinatorState) (*CoordinatorState, error) {
		s.PlanningStage = "delegation"
		s.Delegations = append(s.Delegations,
			Delegation{AgentType: string(TypeResourcePlanning), Objective: "source venue, equipment and staffing"},
			Delegation{AgentType: string(TypeFinancial), Objective: "draft and track the budget"},
		)
		deps.recorder(ctx, s.Head()).TrackDecision(ctx,
			fmt.Sprintf("delegate to %d specialist agents", len(s.Delegations)),
			"requirements gathered")
		s.NextSteps = []string{stepComposeReply}
		s.CurrentPhase = stepPlanDelegation
		return s, nil
	}

	reply := func(ctx context.Context, s *CoordinatorState) (*CoordinatorState, error) {
		summary, err := deps.recorder(ctx, s.Head()).ContextSummary(ctx)
		if err != nil {
			summary = ""
		}
		prompt := fmt.Sprintf("Planning stage: %s. Known context: %s Summarize the plan so far and ask for the next piece of information.",
			s.PlanningStage, summary)
		if err := deps.generateReply(ctx, s.Head(), coordinatorInstructions, prompt); err != nil {
			return s, err
		}
		s.CurrentPhase = stepComposeReply
		return s, nil
	}

	return workflow.MustCompile(
		workflow.NewBuilder[*CoordinatorState](string(TypeCoordinator)).
			AddNode(stepUnderstandRequest, understand).
			AddNode(stepGatherRequirements, gather).
			AddNode(stepPlanDelegation, delegate).
			AddNode(stepComposeReply, reply).
			AddConditionalEdge(stepUnderstandRequest, func(s *CoordinatorState) string {
				if len(s.Requirements) == 0 {
					return stepGatherRequirements
				}
				return stepPlanDelegation
			}).
			AddEdge(stepGatherRequirements, stepComposeReply).
			AddEdge(stepPlanDelegation, stepComposeReply).
			AddEdge(stepComposeReply, workflow.End).
			SetEntryPoint(stepUnderstandRequest).
			WithMaxIterations(deps.MaxIterations).
			WithLogger(deps.Logger).
			WithStepObserver(deps.Observer),
	)
}

func newCoordinatorState(organizationID int64) *CoordinatorState {
	return &CoordinatorState{Header: core.NewHeader(organizationID)}
}
