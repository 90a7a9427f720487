package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/prospector/llmclient"
)

// ClarifyHandler validates and enriches the incoming request. When the
// request already carries enough detail it short-circuits and copies the
// request into the clarified record without calling the model.
type ClarifyHandler struct {
	LLM Completer
}

func (h *ClarifyHandler) Stage() Stage { return StageClarify }

const clarifyPrompt = `You are a procurement clarification analyst. Analyze this procurement request and normalize it.

INPUT:
- Service/Product: %s
- Country: %s
- Additional details: %s

Respond with a single JSON object:
{
  "service_name": "clarified, standardized service name",
  "service_category": "broad category, e.g. IT Services & Software",
  "country_code": "ISO 3166-1 alpha-2 code",
  "region": "geographic region, e.g. North America",
  "requirements": ["specific requirements extracted from the details"],
  "business_context": "business context and use case"
}

Normalize the country name to its ISO code and region. Use standard
procurement categories. Respond with JSON only.`

func (h *ClarifyHandler) Execute(ctx context.Context, state *State, tier llmclient.Tier) error {
	req := state.Request
	if strings.TrimSpace(req.ServiceName) == "" || strings.TrimSpace(req.Country) == "" {
		return preconditionErr(StageClarify, "request is missing service name or country")
	}

	// Short-circuit: a request that already names its category, country,
	// and scale needs no enrichment call.
	if requestComplete(req) {
		state.Clarified = &ClarifiedRequest{
			ServiceName:     req.ServiceName,
			ServiceCategory: detectCategory(req),
			CountryCode:     req.Country,
			Region:          "",
			BusinessContext: req.Details,
		}
		return nil
	}

	details := req.Details
	if details == "" {
		details = "None provided"
	}
	prompt := fmt.Sprintf(clarifyPrompt, req.ServiceName, req.Country, details)

	text, err := h.LLM.Complete(ctx, tier, prompt, 0)
	if err != nil {
		return transportErr(StageClarify, err)
	}

	var clarified ClarifiedRequest
	if err := decodeResponse(StageClarify, text, &clarified); err != nil {
		return err
	}
	if clarified.ServiceName == "" {
		clarified.ServiceName = req.ServiceName
	}
	state.Clarified = &clarified
	return nil
}

// categoryTerms and scaleTerms drive the completeness heuristic. A request
// is complete when its free-text details name both a service category and
// some scale or deployment context.
var categoryTerms = []string{
	"software", "saas", "cloud", "consulting", "hardware", "infrastructure",
	"logistics", "marketing", "legal", "training", "security", "storage",
	"hosting", "network", "analytics", "erp", "crm",
}

var scaleTerms = []string{
	"users", "seats", "employees", "enterprise", "smb", "small business",
	"startup", "tb", "gb", "licenses", "locations", "offices", "sites",
	"monthly", "annual", "budget",
}

// requestComplete reports whether the request already contains a service
// category, a country, and scale/context detail.
func requestComplete(req Request) bool {
	if strings.TrimSpace(req.Country) == "" || strings.TrimSpace(req.Details) == "" {
		return false
	}
	details := strings.ToLower(req.ServiceName + " " + req.Details)
	return containsAny(details, categoryTerms) && containsAny(strings.ToLower(req.Details), scaleTerms)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// detectCategory picks the first category term present in the request text.
// Only used on the short-circuit path; the model assigns categories
// otherwise.
func detectCategory(req Request) string {
	text := strings.ToLower(req.ServiceName + " " + req.Details)
	for _, t := range categoryTerms {
		if strings.Contains(text, t) {
			return t
		}
	}
	return "general"
}
