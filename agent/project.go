package agent

import (
	"context"
	"fmt"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/workflow"
)

const projectInstructions = "You are a project management specialist. Track tasks, " +
	"milestones, and risks, and keep the schedule honest."

const (
	stepReviewTasks        = "review_tasks"
	stepUpdateRiskRegister = "update_risk_register"
	stepScheduleMilestones = "schedule_milestones"
)

func newProjectDefinition(deps Deps) *workflow.Definition[*ProjectState] {
	review := func(ctx context.Context, s *ProjectState) (*ProjectState, error) {
		if len(s.Tasks) == 0 {
			s.Tasks = append(s.Tasks,
				PlanTask{Title: "Confirm venue contract", Owner: "operations", DueDays: 7},
				PlanTask{Title: "Publish event page", Owner: "marketing", DueDays: 14},
				PlanTask{Title: "Finalize speaker lineup", Owner: "program", DueDays: 21},
			)
		}
		s.CurrentPhase = stepReviewTasks
		return s, nil
	}

	risks := func(ctx context.Context, s *ProjectState) (*ProjectState, error) {
		s.Risks = append(s.Risks, Risk{
			Description: "venue contract unsigned within a week of deadline",
			Severity:    "high",
			Mitigation:  "escalate to sponsor and prepare backup venue",
		})
		deps.recorder(ctx, s.Head()).TrackDecision(ctx, "open risk register entry",
			"overdue blocking task detected")
		s.CurrentPhase = stepUpdateRiskRegister
		return s, nil
	}

	milestones := func(ctx context.Context, s *ProjectState) (*ProjectState, error) {
		if len(s.Milestones) == 0 {
			s.Milestones = append(s.Milestones, "planning complete", "logistics locked", "event day")
		}
		s.CurrentPhase = stepScheduleMilestones
		return s, nil
	}

	reply := func(ctx context.Context, s *ProjectState) (*ProjectState, error) {
		open := 0
		for _, t := range s.Tasks {
			if !t.Done {
				open++
			}
		}
		prompt := fmt.Sprintf("%d of %d tasks are open, %d milestones scheduled, %d risks on the register. Summarize schedule status and the top action item.",
			open, len(s.Tasks), len(s.Milestones), len(s.Risks))
		if err := deps.generateReply(ctx, s.Head(), projectInstructions, prompt); err != nil {
			return s, err
		}
		s.CurrentPhase = stepComposeReply
		return s, nil
	}

	return workflow.MustCompile(
		workflow.NewBuilder[*ProjectState](string(TypeProjectManagement)).
			AddNode(stepReviewTasks, review).
			AddNode(stepUpdateRiskRegister, risks).
			AddNode(stepScheduleMilestones, milestones).
			AddNode(stepComposeReply, reply).
			AddConditionalEdge(stepReviewTasks, func(s *ProjectState) string {
				if hasBlockedTask(s) {
					return stepUpdateRiskRegister
				}
				return stepScheduleMilestones
			}).
			AddEdge(stepUpdateRiskRegister, stepScheduleMilestones).
			AddEdge(stepScheduleMilestones, stepComposeReply).
			AddEdge(stepComposeReply, workflow.End).
			SetEntryPoint(stepReviewTasks).
			WithMaxIterations(deps.MaxIterations).
			WithLogger(deps.Logger).
			WithStepObserver(deps.Observer),
	)
}

func hasBlockedTask(s *ProjectState) bool {
	for _, t := range s.Tasks {
		if !t.Done && t.DueDays <= 0 {
			return true
		}
	}
	return false
}

func newProjectState(organizationID int64) *ProjectState {
	return &ProjectState{Header: core.NewHeader(organizationID)}
}
