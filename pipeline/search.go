package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/martinemde/prospector/llmclient"
	"github.com/martinemde/prospector/websearch"
)

// SearchHandler discovers global vendors and regional partners. It issues
// up to MaxQueries web searches, dispatched concurrently since the queries
// are independent, then has the model analyze the merged results.
type SearchHandler struct {
	LLM        Completer
	Search     Searcher
	MaxQueries int
	MaxResults int
}

func (h *SearchHandler) Stage() Stage { return StageSearch }

const vendorAnalysisPrompt = `You are a procurement research analyst. Identify and rank global vendors for this service from the search results below.

SERVICE:
- Name: %s
- Category: %s
- Region: %s

SEARCH RESULTS:
%s

Only include established, legitimate companies that actually provide the
service. Exclude job postings and generic content. Rank by relevance,
reputation, and market presence.

Respond with a single JSON object:
{
  "vendors": [
    {
      "name": "official company name",
      "description": "what they provide",
      "website": "url if known",
      "headquarters": "location",
      "score": 87.5,
      "strengths": ["..."],
      "weaknesses": ["..."],
      "fit_notes": "fit assessment for the requirements"
    }
  ]
}

Scores are 0-100, higher is better. Respond with JSON only.`

const partnerAnalysisPrompt = `You are a regional partner research analyst. Identify local partners, distributors, and implementation specialists for this service from the search results below.

SERVICE:
- Name: %s
- Target country: %s
- Known vendors: %s

SEARCH RESULTS:
%s

Focus on established local businesses with a real vendor relationship.
Exclude individual contractors.

Respond with a single JSON object:
{
  "partners": [
    {
      "name": "company name",
      "relationship": "partner | distributor | reseller | integrator",
      "country": "country",
      "city": "city",
      "description": "what they do",
      "specializations": ["..."],
      "score": 72.0
    }
  ]
}

Scores are 0-100, higher is better. Respond with JSON only.`

func (h *SearchHandler) Execute(ctx context.Context, state *State, tier llmclient.Tier) error {
	if state.Clarified == nil || state.Description == nil {
		return preconditionErr(StageSearch, "clarified request or service description is missing")
	}
	c := state.Clarified

	vendors, err := h.discoverVendors(ctx, tier, c)
	if err != nil {
		return err
	}

	vendorNames := make([]string, 0, len(vendors))
	for _, v := range vendors {
		vendorNames = append(vendorNames, v.Name)
	}

	partners, err := h.discoverPartners(ctx, tier, c, vendorNames)
	if err != nil {
		return err
	}

	state.Vendors = vendors
	state.Partners = partners
	return nil
}

func (h *SearchHandler) discoverVendors(ctx context.Context, tier llmclient.Tier, c *ClarifiedRequest) ([]Vendor, error) {
	queries := capQueries(vendorQueries(c.ServiceName, c.ServiceCategory, c.Region), h.MaxQueries)
	results, err := runQueries(ctx, StageSearch, h.Search, queries, h.MaxResults)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(vendorAnalysisPrompt, c.ServiceName, c.ServiceCategory, c.Region, formatSearchResults(results))
	text, err := h.LLM.Complete(ctx, tier, prompt, 0)
	if err != nil {
		return nil, transportErr(StageSearch, err)
	}

	var parsed struct {
		Vendors []Vendor `json:"vendors"`
	}
	if err := decodeResponse(StageSearch, text, &parsed); err != nil {
		return nil, err
	}

	vendors := dedupeVendors(parsed.Vendors)
	sort.SliceStable(vendors, func(i, j int) bool { return vendors[i].Score > vendors[j].Score })
	return vendors, nil
}

func (h *SearchHandler) discoverPartners(ctx context.Context, tier llmclient.Tier, c *ClarifiedRequest, vendorNames []string) ([]Partner, error) {
	queries := capQueries(partnerQueries(c.ServiceName, c.CountryCode, vendorNames), h.MaxQueries)
	results, err := runQueries(ctx, StageSearch, h.Search, queries, h.MaxResults)
	if err != nil {
		return nil, err
	}

	if len(vendorNames) > 5 {
		vendorNames = vendorNames[:5]
	}
	prompt := fmt.Sprintf(partnerAnalysisPrompt, c.ServiceName, c.CountryCode,
		strings.Join(vendorNames, ", "), formatSearchResults(results))
	text, err := h.LLM.Complete(ctx, tier, prompt, 0)
	if err != nil {
		return nil, transportErr(StageSearch, err)
	}

	var parsed struct {
		Partners []Partner `json:"partners"`
	}
	if err := decodeResponse(StageSearch, text, &parsed); err != nil {
		return nil, err
	}

	partners := dedupePartners(parsed.Partners)
	sort.SliceStable(partners, func(i, j int) bool { return partners[i].Score > partners[j].Score })
	return partners, nil
}

// runQueries dispatches the queries concurrently and merges their results.
// The queries share no mutable state, so the only coordination point is the
// final merge. The first error wins; remaining results are discarded.
func runQueries(ctx context.Context, stage Stage, searcher Searcher, queries []string, maxResults int) ([]websearch.Result, error) {
	perQuery := make([][]websearch.Result, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			results, err := searcher.Search(ctx, q, maxResults)
			if err != nil {
				errs[i] = err
				return
			}
			perQuery[i] = results
		}(i, q)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, transportErr(stage, err)
		}
	}

	var merged []websearch.Result
	seen := make(map[string]bool)
	for _, results := range perQuery {
		for _, r := range results {
			key := r.URL
			if key == "" {
				key = normalizeName(r.Title)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}
	return merged, nil
}

func vendorQueries(service, category, region string) []string {
	return []string{
		fmt.Sprintf("%s vendors companies providers", service),
		fmt.Sprintf("%s top vendors %s", service, region),
		fmt.Sprintf("%s leading companies global", category),
		fmt.Sprintf("best %s vendors comparison", service),
		fmt.Sprintf("%s market leaders %s", service, region),
	}
}

func partnerQueries(service, country string, vendorNames []string) []string {
	queries := []string{
		fmt.Sprintf("%s partners %s", service, country),
		fmt.Sprintf("%s distributors %s", service, country),
		fmt.Sprintf("%s implementation partners %s", service, country),
	}
	for i, vendor := range vendorNames {
		if i >= 3 {
			break
		}
		queries = append(queries, fmt.Sprintf("%s partners %s", vendor, country))
	}
	return queries
}

func capQueries(queries []string, max int) []string {
	if max > 0 && len(queries) > max {
		return queries[:max]
	}
	return queries
}

// normalizeName canonicalizes a company name for deduplication: lowercase,
// punctuation stripped, common corporate suffixes dropped.
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			b.WriteRune(r)
		}
	}
	fields := strings.Fields(b.String())
	for len(fields) > 1 {
		switch fields[len(fields)-1] {
		case "inc", "llc", "ltd", "gmbh", "corp", "corporation", "co", "sa", "ag", "limited":
			fields = fields[:len(fields)-1]
		default:
			return strings.Join(fields, " ")
		}
	}
	return strings.Join(fields, " ")
}

func dedupeVendors(vendors []Vendor) []Vendor {
	seen := make(map[string]bool)
	out := vendors[:0]
	for _, v := range vendors {
		key := normalizeName(v.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func dedupePartners(partners []Partner) []Partner {
	seen := make(map[string]bool)
	out := partners[:0]
	for _, p := range partners {
		key := normalizeName(p.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
