package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/prospector/llmclient"
)

// ReportHandler compiles the final report from all prior state fields. It
// makes no network calls: the report is a deterministic aggregation, so
// running it twice over the same state yields identical content. Missing
// upstream sections are omitted rather than treated as errors.
type ReportHandler struct{}

func (h *ReportHandler) Stage() Stage { return StageReport }

func (h *ReportHandler) Execute(ctx context.Context, state *State, _ llmclient.Tier) error {
	if state.Clarified == nil {
		return preconditionErr(StageReport, "clarified request is missing")
	}

	report := &Report{
		ExecutiveSummary:       buildExecutiveSummary(state),
		ServiceAnalysis:        state.Description,
		VendorRankings:         state.Vendors,
		PartnerRecommendations: state.Partners,
		PriceBenchmark:         state.PriceBenchmark,
		ImplementationRoadmap:  buildRoadmap(state),
		RiskAssessment:         buildRiskAssessment(state),
		NextSteps:              buildNextSteps(state),
		GeneratedAt:            state.StartedAt,
	}
	state.Report = report
	return nil
}

func buildExecutiveSummary(state *State) string {
	c := state.Clarified
	var b strings.Builder

	fmt.Fprintf(&b, "Procurement discovery for %s", c.ServiceName)
	if c.CountryCode != "" {
		fmt.Fprintf(&b, " in %s", c.CountryCode)
	}
	b.WriteString(".")

	if state.Description != nil && state.Description.Overview != "" {
		b.WriteString(" ")
		b.WriteString(state.Description.Overview)
	}

	if len(state.Vendors) > 0 {
		top := state.Vendors[0]
		fmt.Fprintf(&b, " %d vendors were identified; the leading candidate is %s (score %.1f).",
			len(state.Vendors), top.Name, top.Score)
	} else {
		b.WriteString(" No vendors could be identified from the available research.")
	}

	if len(state.Partners) > 0 {
		fmt.Fprintf(&b, " %d regional partners are available for local implementation.", len(state.Partners))
	}

	if pb := state.PriceBenchmark; pb != nil {
		fmt.Fprintf(&b, " Expected pricing falls between %.0f and %.0f %s.",
			pb.RangeLow, pb.RangeHigh, pb.Currency)
	}

	return b.String()
}

func buildRoadmap(state *State) []string {
	roadmap := []string{
		"Validate requirements with internal stakeholders",
	}
	if len(state.Vendors) > 0 {
		n := len(state.Vendors)
		if n > 3 {
			n = 3
		}
		roadmap = append(roadmap, fmt.Sprintf("Shortlist and engage the top %d vendors for demos and proposals", n))
	}
	if len(state.Partners) > 0 {
		roadmap = append(roadmap, "Evaluate regional partners for local implementation and support")
	}
	if state.PriceBenchmark != nil {
		roadmap = append(roadmap, "Negotiate against the market price benchmark")
	}
	roadmap = append(roadmap, "Run a pilot before committing to a full rollout")
	return roadmap
}

func buildRiskAssessment(state *State) []string {
	var risks []string
	if len(state.Vendors) == 0 {
		risks = append(risks, "No vendors identified; research coverage is insufficient for a sourcing decision")
	}
	if len(state.Partners) == 0 {
		risks = append(risks, "No regional partners identified; implementation support may require remote delivery")
	}
	if state.PriceBenchmark == nil {
		risks = append(risks, "Pricing benchmark unavailable; budget estimates carry high uncertainty")
	}
	risks = append(risks,
		"Vendor claims are based on public sources and require validation",
		"Lock-in and exit costs should be assessed before contract signature",
	)
	return risks
}

func buildNextSteps(state *State) []string {
	steps := []string{"Review this report with the procurement team"}
	if len(state.Vendors) > 0 {
		steps = append(steps, fmt.Sprintf("Request detailed proposals from %s", state.Vendors[0].Name))
	}
	steps = append(steps, "Confirm compliance and security requirements with shortlisted vendors")
	return steps
}
