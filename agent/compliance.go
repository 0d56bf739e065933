package agent

import (
	"context"
	"fmt"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/workflow"
)

const complianceInstructions = "You are a compliance and security specialist. Enumerate " +
	"obligations, track remediation, and never sign off on unresolved findings."

const (
	stepReviewRequirements = "review_requirements"
	stepPlanRemediation    = "plan_remediation"
	stepScheduleAudit      = "schedule_audit"
)

func newComplianceDefinition(deps Deps) *workflow.Definition[*ComplianceState] {
	review := func(ctx context.Context, s *ComplianceState) (*ComplianceState, error) {
		if len(s.Requirements) == 0 {
			s.Requirements = append(s.Requirements,
				ComplianceItem{Name: "attendee data retention policy", Notes: "define retention window"},
				ComplianceItem{Name: "venue safety certification", Notes: "request current certificate"},
				ComplianceItem{Name: "payment processing PCI scope", Satisfied: true},
			)
		}
		s.CurrentPhase = stepReviewRequirements
		return s, nil
	}

	remediate := func(ctx context.Context, s *ComplianceState) (*ComplianceState, error) {
		for _, r := range s.Requirements {
			if !r.Satisfied {
				s.Remediations = append(s.Remediations, fmt.Sprintf("remediate: %s (%s)", r.Name, r.Notes))
			}
		}
		deps.recorder(ctx, s.Head()).TrackDecision(ctx, "open remediation items",
			fmt.Sprintf("%d unsatisfied requirements", len(s.Remediations)))
		s.CurrentPhase = stepPlanRemediation
		return s, nil
	}

	audit := func(ctx context.Context, s *ComplianceState) (*ComplianceState, error) {
		s.Audits = append(s.Audits, fmt.Sprintf("audit %d: verify %d requirements", len(s.Audits)+1, len(s.Requirements)))
		s.CurrentPhase = stepScheduleAudit
		return s, nil
	}

	reply := func(ctx context.Context, s *ComplianceState) (*ComplianceState, error) {
		open := 0
		for _, r := range s.Requirements {
			if !r.Satisfied {
				open++
			}
		}
		prompt := fmt.Sprintf("%d of %d requirements remain unsatisfied, %d remediation items open, %d audits scheduled. Report compliance posture and the next obligation due.",
			open, len(s.Requirements), len(s.Remediations), len(s.Audits))
		if err := deps.generateReply(ctx, s.Head(), complianceInstructions, prompt); err != nil {
			return s, err
		}
		s.CurrentPhase = stepComposeReply
		return s, nil
	}

	return workflow.MustCompile(
		workflow.NewBuilder[*ComplianceState](string(TypeComplianceSecurity)).
			AddNode(stepReviewRequirements, review).
			AddNode(stepPlanRemediation, remediate).
			AddNode(stepScheduleAudit, audit).
			AddNode(stepComposeReply, reply).
			AddConditionalEdge(stepReviewRequirements, func(s *ComplianceState) string {
				for _, r := range s.Requirements {
					if !r.Satisfied {
						return stepPlanRemediation
					}
				}
				return stepScheduleAudit
			}).
			AddEdge(stepPlanRemediation, stepScheduleAudit).
			AddEdge(stepScheduleAudit, stepComposeReply).
			AddEdge(stepComposeReply, workflow.End).
			SetEntryPoint(stepReviewRequirements).
			WithMaxIterations(deps.MaxIterations).
			WithLogger(deps.Logger).
			WithStepObserver(deps.Observer),
	)
}

func newComplianceState(organizationID int64) *ComplianceState {
	return &ComplianceState{Header: core.NewHeader(organizationID)}
}
