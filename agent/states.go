package agent

import "github.com/planmesh/planmesh/core"

// The conversation state variants below form a closed set, one per agent
// type. Each shares the core.Header by composition and adds the payload
// fields private to its workflow definition. Every field must survive a
// JSON save/load cycle with identical types.

// Delegation records a hand-off the coordinator planned for another agent type.
type Delegation struct {
	AgentType string `json:"agent_type"`
	Objective string `json:"objective"`
}

// CoordinatorState is the state threaded through the coordinator workflow.
type CoordinatorState struct {
	core.Header
	PlanningStage string         `json:"planning_stage,omitempty"`
	Requirements  map[string]any `json:"requirements,omitempty"`
	Delegations   []Delegation   `json:"delegations,omitempty"`
}

// Venue is one candidate location under evaluation.
type Venue struct {
	Name     string  `json:"name"`
	Capacity int     `json:"capacity"`
	DailyFee float64 `json:"daily_fee"`
}

// ResourcePlanningState is the state threaded through the resource planning workflow.
type ResourcePlanningState struct {
	core.Header
	Venues        []Venue        `json:"venues,omitempty"`
	SelectedVenue *Venue         `json:"selected_venue,omitempty"`
	Equipment     []string       `json:"equipment,omitempty"`
	Staffing      map[string]int `json:"staffing,omitempty"`
}

// Expense is a single recorded cost line.
type Expense struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Approved bool    `json:"approved"`
}

// FinancialState is the state threaded through the financial workflow.
type FinancialState struct {
	core.Header
	TotalBudget float64            `json:"total_budget,omitempty"`
	Allocations map[string]float64 `json:"allocations,omitempty"`
	Expenses    []Expense          `json:"expenses,omitempty"`
}

// Stakeholder is one tracked interested party.
type Stakeholder struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Interest string `json:"interest"` // low, medium, high
}

// StakeholderState is the state threaded through the stakeholder management workflow.
type StakeholderState struct {
	core.Header
	Stakeholders  []Stakeholder `json:"stakeholders,omitempty"`
	OutreachPlans []string      `json:"outreach_plans,omitempty"`
}

// Campaign is one planned promotional push.
type Campaign struct {
	Name    string   `json:"name"`
	Channel string   `json:"channel"`
	Phases  []string `json:"phases,omitempty"`
}

// MarketingState is the state threaded through the marketing communications workflow.
type MarketingState struct {
	core.Header
	Audience  map[string]any `json:"audience,omitempty"`
	Channels  []string       `json:"channels,omitempty"`
	Campaigns []Campaign     `json:"campaigns,omitempty"`
}

// PlanTask is one unit of tracked project work.
type PlanTask struct {
	Title   string `json:"title"`
	Owner   string `json:"owner,omitempty"`
	DueDays int    `json:"due_days,omitempty"`
	Done    bool   `json:"done,omitempty"`
}

// Risk is a registry entry with a qualitative severity.
type Risk struct {
	Description string `json:"description"`
	Severity    string `json:"severity"` // low, medium, high
	Mitigation  string `json:"mitigation,omitempty"`
}

// ProjectState is the state threaded through the project management workflow.
type ProjectState struct {
	core.Header
	Tasks      []PlanTask `json:"tasks,omitempty"`
	Milestones []string   `json:"milestones,omitempty"`
	Risks      []Risk     `json:"risks,omitempty"`
}

// Report is one generated analytics artifact.
type Report struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// AnalyticsState is the state threaded through the analytics workflow.
type AnalyticsState struct {
	core.Header
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Reports []Report           `json:"reports,omitempty"`
}

// ComplianceItem is one regulatory or security requirement under review.
type ComplianceItem struct {
	Name      string `json:"name"`
	Satisfied bool   `json:"satisfied"`
	Notes     string `json:"notes,omitempty"`
}

// ComplianceState is the state threaded through the compliance and security workflow.
type ComplianceState struct {
	core.Header
	Requirements []ComplianceItem `json:"requirements,omitempty"`
	Remediations []string         `json:"remediations,omitempty"`
	Audits       []string         `json:"audits,omitempty"`
}
