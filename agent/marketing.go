package agent

import (
	"context"
	"fmt"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/workflow"
)

const marketingInstructions = "You are a marketing and communications specialist. Match " +
	"channels to the audience and keep campaign messaging consistent across phases."

const (
	stepProfileAudience = "profile_audience"
	stepSelectChannels  = "select_channels"
	stepDraftCampaign   = "draft_campaign"
)

func newMarketingDefinition(deps Deps) *workflow.Definition[*MarketingState] {
	profile := func(ctx context.Context, s *MarketingState) (*MarketingState, error) {
		if s.Audience == nil {
			s.Audience = map[string]any{}
		}
		if msg, ok := s.LastUserMessage(); ok {
			s.Audience["latest_brief"] = msg
		}
		s.CurrentPhase = stepProfileAudience
		return s, nil
	}

	selectChannels := func(ctx context.Context, s *MarketingState) (*MarketingState, error) {
		s.Channels = append(s.Channels, "email", "social", "partner newsletters")
		deps.recorder(ctx, s.Head()).TrackRecommendation(ctx, "channel mix",
			"email plus social with partner newsletters for reach")
		s.CurrentPhase = stepSelectChannels
		return s, nil
	}

	draft := func(ctx context.Context, s *MarketingState) (*MarketingState, error) {
		channel := "email"
		if len(s.Channels) > 0 {
			channel = s.Channels[0]
		}
		s.Campaigns = append(s.Campaigns, Campaign{
			Name:    fmt.Sprintf("Campaign %d", len(s.Campaigns)+1),
			Channel: channel,
			Phases:  []string{"announce", "remind", "last call"},
		})
		s.CurrentPhase = stepDraftCampaign
		return s, nil
	}

	reply := func(ctx context.Context, s *MarketingState) (*MarketingState, error) {
		prompt := fmt.Sprintf("Audience has %d known traits, %d channels selected, %d campaigns drafted. Summarize the outreach plan and the first message to send.",
			len(s.Audience), len(s.Channels), len(s.Campaigns))
		if err := deps.generateReply(ctx, s.Head(), marketingInstructions, prompt); err != nil {
			return s, err
		}
		s.CurrentPhase = stepComposeReply
		return s, nil
	}

	return workflow.MustCompile(
		workflow.NewBuilder[*MarketingState](string(TypeMarketingCommunications)).
			AddNode(stepProfileAudience, profile).
			AddNode(stepSelectChannels, selectChannels).
			AddNode(stepDraftCampaign, draft).
			AddNode(stepComposeReply, reply).
			AddConditionalEdge(stepProfileAudience, func(s *MarketingState) string {
				if len(s.Channels) == 0 {
					return stepSelectChannels
				}
				return stepDraftCampaign
			}).
			AddEdge(stepSelectChannels, stepDraftCampaign).
			AddEdge(stepDraftCampaign, stepComposeReply).
			AddEdge(stepComposeReply, workflow.End).
			SetEntryPoint(stepProfileAudience).
			WithMaxIterations(deps.MaxIterations).
			WithLogger(deps.Logger).
			WithStepObserver(deps.Observer),
	)
}

func newMarketingState(organizationID int64) *MarketingState {
	return &MarketingState{Header: core.NewHeader(organizationID)}
}
