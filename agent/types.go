package agent

import "github.com/planmesh/planmesh/core"

// Type names one of the fixed set of specialized planning agents.
type Type string

const (
	// TypeCoordinator understands the overall request and delegates.
	TypeCoordinator Type = "coordinator"
	// TypeResourcePlanning handles venues, equipment and staffing.
	TypeResourcePlanning Type = "resource_planning"
	// TypeFinancial handles budgets, allocations and expense review.
	TypeFinancial Type = "financial"
	// TypeStakeholderManagement handles stakeholder mapping and outreach.
	TypeStakeholderManagement Type = "stakeholder_management"
	// TypeMarketingCommunications handles audience, channels and campaigns.
	TypeMarketingCommunications Type = "marketing_communications"
	// TypeProjectManagement handles tasks, milestones and risks.
	TypeProjectManagement Type = "project_management"
	// TypeAnalytics handles metrics collection and reporting.
	TypeAnalytics Type = "analytics"
	// TypeComplianceSecurity handles regulatory requirements and audits.
	TypeComplianceSecurity Type = "compliance_security"
)

// AllTypes returns every registered agent type.
func AllTypes() []Type {
	return []Type{
		TypeCoordinator,
		TypeResourcePlanning,
		TypeFinancial,
		TypeStakeholderManagement,
		TypeMarketingCommunications,
		TypeProjectManagement,
		TypeAnalytics,
		TypeComplianceSecurity,
	}
}

// ParseType validates a raw agent type string against the closed set.
func ParseType(raw string) (Type, error) {
	t := Type(raw)
	for _, known := range AllTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", &core.UnsupportedAgentTypeError{Name: raw}
}
