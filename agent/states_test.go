package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmesh/planmesh/core"
)

func TestStateVariantsRoundTripJSON(t *testing.T) {
	header := core.NewHeader(42)
	header.AppendMessage(core.RoleUser, "hello")
	header.AppendMessage(core.RoleAssistant, "hi there")
	header.CurrentPhase = "compose_reply"
	header.NextSteps = []string{"plan_delegation"}

	variants := map[string]core.State{
		"coordinator": &CoordinatorState{
			Header:        header,
			PlanningStage: "delegation",
			Requirements:  map[string]any{"latest_request": "venue for 200"},
			Delegations:   []Delegation{{AgentType: "financial", Objective: "budget"}},
		},
		"resource_planning": &ResourcePlanningState{
			Header:        header,
			Venues:        []Venue{{Name: "Harborview Hall", Capacity: 300, DailyFee: 4200}},
			SelectedVenue: &Venue{Name: "Harborview Hall", Capacity: 300, DailyFee: 4200},
			Equipment:     []string{"stage"},
			Staffing:      map[string]int{"hosts": 2},
		},
		"financial": &FinancialState{
			Header:      header,
			TotalBudget: 25000,
			Allocations: map[string]float64{"venue": 10000},
			Expenses:    []Expense{{Category: "venue", Amount: 4200, Approved: true}},
		},
		"stakeholder_management": &StakeholderState{
			Header:        header,
			Stakeholders:  []Stakeholder{{Name: "Sponsor", Role: "sponsor", Interest: "high"}},
			OutreachPlans: []string{"weekly update"},
		},
		"marketing_communications": &MarketingState{
			Header:    header,
			Audience:  map[string]any{"segment": "developers"},
			Channels:  []string{"email"},
			Campaigns: []Campaign{{Name: "Campaign 1", Channel: "email", Phases: []string{"announce"}}},
		},
		"project_management": &ProjectState{
			Header:     header,
			Tasks:      []PlanTask{{Title: "book venue", Owner: "ops", DueDays: 7}},
			Milestones: []string{"event day"},
			Risks:      []Risk{{Description: "venue unsigned", Severity: "high", Mitigation: "backup venue"}},
		},
		"analytics": &AnalyticsState{
			Header:  header,
			Metrics: map[string]float64{"registrations": 180},
			Reports: []Report{{Title: "Status report 1", Summary: "on track"}},
		},
		"compliance_security": &ComplianceState{
			Header:       header,
			Requirements: []ComplianceItem{{Name: "data retention", Satisfied: false, Notes: "define window"}},
			Remediations: []string{"remediate: data retention"},
			Audits:       []string{"audit 1"},
		},
	}

	for name, state := range variants {
		t.Run(name, func(t *testing.T) {
			first, err := json.Marshal(state)
			require.NoError(t, err)

			// A second encode of the decoded value must be byte-equivalent:
			// nothing is lost or retyped through the envelope.
			second, err := reencode(name, first)
			require.NoError(t, err)
			assert.JSONEq(t, string(first), string(second))
		})
	}
}

func reencode(name string, blob []byte) ([]byte, error) {
	decode := func(out any) ([]byte, error) {
		if err := json.Unmarshal(blob, out); err != nil {
			return nil, err
		}
		return json.Marshal(out)
	}
	switch name {
	case "coordinator":
		return decode(&CoordinatorState{})
	case "resource_planning":
		return decode(&ResourcePlanningState{})
	case "financial":
		return decode(&FinancialState{})
	case "stakeholder_management":
		return decode(&StakeholderState{})
	case "marketing_communications":
		return decode(&MarketingState{})
	case "project_management":
		return decode(&ProjectState{})
	case "analytics":
		return decode(&AnalyticsState{})
	case "compliance_security":
		return decode(&ComplianceState{})
	}
	return nil, json.Unmarshal(blob, &struct{}{})
}

func TestStateVariantsMissingFieldsDefault(t *testing.T) {
	blob := []byte(`{"messages":[],"current_phase":"created","organization_id":7}`)

	var s FinancialState
	require.NoError(t, json.Unmarshal(blob, &s))
	assert.Equal(t, int64(7), s.OrganizationID)
	assert.Zero(t, s.TotalBudget)
	assert.Nil(t, s.Allocations)
	assert.Empty(t, s.Expenses)
}
