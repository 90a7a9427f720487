package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/prospector/llmclient"
)

// DescribeHandler produces the structured technical description of the
// requested service from the clarified request.
type DescribeHandler struct {
	LLM Completer
}

func (h *DescribeHandler) Stage() Stage { return StageDescribe }

const describePrompt = `You are a technology and services analyst. Write a structured description of the following service for a procurement team.

SERVICE:
- Name: %s
- Category: %s
- Region: %s
- Business context: %s
- Requirements: %s

Respond with a single JSON object:
{
  "overview": "one-paragraph overview",
  "description": "detailed technical description",
  "key_features": ["feature", "..."],
  "use_cases": ["use case", "..."],
  "benefits": ["benefit", "..."],
  "compliance": ["relevant standards", "..."],
  "integration": ["integration requirements", "..."]
}

Respond with JSON only.`

func (h *DescribeHandler) Execute(ctx context.Context, state *State, tier llmclient.Tier) error {
	if state.Clarified == nil {
		return preconditionErr(StageDescribe, "clarified request is missing")
	}
	c := state.Clarified

	prompt := fmt.Sprintf(describePrompt,
		c.ServiceName, c.ServiceCategory, c.Region, c.BusinessContext,
		strings.Join(c.Requirements, "; "))

	text, err := h.LLM.Complete(ctx, tier, prompt, 0)
	if err != nil {
		return transportErr(StageDescribe, err)
	}

	var desc ServiceDescription
	if err := decodeResponse(StageDescribe, text, &desc); err != nil {
		return err
	}
	if desc.Overview == "" && desc.Description == "" {
		return parseErr(StageDescribe, fmt.Errorf("description response missing overview and description"))
	}
	state.Description = &desc
	return nil
}
