package agent

import (
	"context"
	"fmt"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/workflow"
)

const stakeholderInstructions = "You are a stakeholder management specialist. Map who is " +
	"affected by the plan, what each party cares about, and how to keep them engaged."

const (
	stepMapStakeholders      = "map_stakeholders"
	stepIdentifyStakeholders = "identify_stakeholders"
	stepPlanCommunications   = "plan_communications"
)

func newStakeholderDefinition(deps Deps) *workflow.Definition[*StakeholderState] {
	review := func(ctx context.Context, s *StakeholderState) (*StakeholderState, error) {
		s.CurrentPhase = stepMapStakeholders
		return s, nil
	}

	identify := func(ctx context.Context, s *StakeholderState) (*StakeholderState, error) {
		s.Stakeholders = append(s.Stakeholders,
			Stakeholder{Name: "Executive sponsor", Role: "sponsor", Interest: "budget and outcomes"},
			Stakeholder{Name: "Operations lead", Role: "operations", Interest: "logistics feasibility"},
			Stakeholder{Name: "Attendees", Role: "audience", Interest: "event experience"},
		)
		deps.recorder(ctx, s.Head()).TrackDecision(ctx, "seed default stakeholder map", "no stakeholders identified yet")
		s.CurrentPhase = stepIdentifyStakeholders
		return s, nil
	}

	plan := func(ctx context.Context, s *StakeholderState) (*StakeholderState, error) {
		for _, st := range s.Stakeholders {
			s.OutreachPlans = append(s.OutreachPlans, fmt.Sprintf("weekly update for %s covering %s", st.Name, st.Interest))
		}
		s.CurrentPhase = stepPlanCommunications
		return s, nil
	}

	reply := func(ctx context.Context, s *StakeholderState) (*StakeholderState, error) {
		prompt := fmt.Sprintf("There are %d stakeholders and %d outreach plans. Summarize the engagement approach and flag anyone at risk of being overlooked.",
			len(s.Stakeholders), len(s.OutreachPlans))
		if err := deps.generateReply(ctx, s.Head(), stakeholderInstructions, prompt); err != nil {
			return s, err
		}
		s.CurrentPhase = stepComposeReply
		return s, nil
	}

	return workflow.MustCompile(
		workflow.NewBuilder[*StakeholderState](string(TypeStakeholderManagement)).
			AddNode(stepMapStakeholders, review).
			AddNode(stepIdentifyStakeholders, identify).
			AddNode(stepPlanCommunications, plan).
			AddNode(stepComposeReply, reply).
			AddConditionalEdge(stepMapStakeholders, func(s *StakeholderState) string {
				if len(s.Stakeholders) == 0 {
					return stepIdentifyStakeholders
				}
				return stepPlanCommunications
			}).
			AddEdge(stepIdentifyStakeholders, stepPlanCommunications).
			AddEdge(stepPlanCommunications, stepComposeReply).
			AddEdge(stepComposeReply, workflow.End).
			SetEntryPoint(stepMapStakeholders).
			WithMaxIterations(deps.MaxIterations).
			WithLogger(deps.Logger).
			WithStepObserver(deps.Observer),
	)
}

func newStakeholderState(organizationID int64) *StakeholderState {
	return &StakeholderState{Header: core.NewHeader(organizationID)}
}
