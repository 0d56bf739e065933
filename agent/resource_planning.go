package agent

import (
	"context"
	"fmt"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/workflow"
)

const resourceInstructions = "You are a resource planning specialist. Recommend venues, " +
	"equipment and staffing that match the gathered requirements."

const (
	stepAssessNeeds    = "assess_needs"
	stepEvaluateVenues = "evaluate_venues"
	stepPlanLogistics  = "plan_logistics"
)

func newResourcePlanningDefinition(deps Deps) *workflow.Definition[*ResourcePlanningState] {
	assess := func(ctx context.Context, s *ResourcePlanningState) (*ResourcePlanningState, error) {
		if s.Staffing == nil {
			s.Staffing = map[string]int{}
		}
		s.CurrentPhase = stepAssessNeeds
		return s, nil
	}

	evaluate := func(ctx context.Context, s *ResourcePlanningState) (*ResourcePlanningState, error) {
		if len(s.Venues) == 0 {
			s.Venues = []Venue{
				{Name: "Harborview Hall", Capacity: 300, DailyFee: 4200},
				{Name: "Midtown Loft", Capacity: 120, DailyFee: 1800},
				{Name: "Garden Pavilion", Capacity: 200, DailyFee: 2600},
			}
		}
		if s.SelectedVenue == nil {
			pick := s.Venues[0]
			s.SelectedVenue = &pick
			deps.recorder(ctx, s.Head()).TrackRecommendation(ctx, "venue",
				fmt.Sprintf("recommended %s (capacity %d)", pick.Name, pick.Capacity))
		}
		s.CurrentPhase = stepEvaluateVenues
		return s, nil
	}

	logistics := func(ctx context.Context, s *ResourcePlanningState) (*ResourcePlanningState, error) {
		if len(s.Equipment) == 0 {
			s.Equipment = []string{"stage", "sound system", "projector"}
		}
		if len(s.Staffing) == 0 {
			s.Staffing = map[string]int{"setup_crew": 4, "hosts": 2}
		}
		s.NextSteps = []string{stepComposeReply}
		s.CurrentPhase = stepPlanLogistics
		return s, nil
	}

	reply := func(ctx context.Context, s *ResourcePlanningState) (*ResourcePlanningState, error) {
		venue := "no venue selected yet"
		if s.SelectedVenue != nil {
			venue = s.SelectedVenue.Name
		}
		prompt := fmt.Sprintf("Venue: %s. Equipment: %d items planned. Present the logistics plan and outstanding questions.",
			venue, len(s.Equipment))
		if err := deps.generateReply(ctx, s.Head(), resourceInstructions, prompt); err != nil {
			return s, err
		}
		s.CurrentPhase = stepComposeReply
		return s, nil
	}

	return workflow.MustCompile(
		workflow.NewBuilder[*ResourcePlanningState](string(TypeResourcePlanning)).
			AddNode(stepAssessNeeds, assess).
			AddNode(stepEvaluateVenues, evaluate).
			AddNode(stepPlanLogistics, logistics).
			AddNode(stepComposeReply, reply).
			AddConditionalEdge(stepAssessNeeds, func(s *ResourcePlanningState) string {
				if s.SelectedVenue == nil {
					return stepEvaluateVenues
				}
				return stepPlanLogistics
			}).
			AddEdge(stepEvaluateVenues, stepPlanLogistics).
			AddEdge(stepPlanLogistics, stepComposeReply).
			AddEdge(stepComposeReply, workflow.End).
			SetEntryPoint(stepAssessNeeds).
			WithMaxIterations(deps.MaxIterations).
			WithLogger(deps.Logger).
			WithStepObserver(deps.Observer),
	)
}

func newResourcePlanningState(organizationID int64) *ResourcePlanningState {
	return &ResourcePlanningState{Header: core.NewHeader(organizationID)}
}
