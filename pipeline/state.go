// Package pipeline implements the procurement discovery workflow: a fixed
// sequence of stages threading one shared state record from the initial
// request to the final report.
package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Stage names one unit of work in the fixed pipeline.
type Stage string

const (
	StageClarify   Stage = "clarify"
	StageDescribe  Stage = "describe"
	StageSearch    Stage = "search"
	StageBenchmark Stage = "benchmark"
	StageReport    Stage = "report"
)

// Stages is the fixed execution order.
var Stages = []Stage{StageClarify, StageDescribe, StageSearch, StageBenchmark, StageReport}

// Status is the overall pipeline status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// AttemptStatus is the result of a single stage attempt.
type AttemptStatus string

const (
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
)

// Attempt is one entry in the append-only stage history.
type Attempt struct {
	Stage     Stage         `json:"stage"`
	Status    AttemptStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Error     string        `json:"error,omitempty"`
}

// Request is the original user input. Immutable once set.
type Request struct {
	ServiceName string `json:"service_name"`
	Country     string `json:"country"`
	Details     string `json:"details,omitempty"`
}

// ClarifiedRequest is the normalized, enriched version of the request.
type ClarifiedRequest struct {
	ServiceName     string   `json:"service_name"`
	ServiceCategory string   `json:"service_category"`
	CountryCode     string   `json:"country_code"`
	Region          string   `json:"region"`
	Requirements    []string `json:"requirements,omitempty"`
	BusinessContext string   `json:"business_context,omitempty"`
}

// ServiceDescription is the structured technical description of the service.
type ServiceDescription struct {
	Overview    string   `json:"overview"`
	Description string   `json:"description"`
	KeyFeatures []string `json:"key_features"`
	UseCases    []string `json:"use_cases,omitempty"`
	Benefits    []string `json:"benefits,omitempty"`
	Compliance  []string `json:"compliance,omitempty"`
	Integration []string `json:"integration,omitempty"`
}

// Vendor is one ranked vendor record. Ranking order is meaningful:
// best fit first, ordered by descending score.
type Vendor struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Website      string   `json:"website,omitempty"`
	Headquarters string   `json:"headquarters,omitempty"`
	Score        float64  `json:"score"`
	Strengths    []string `json:"strengths,omitempty"`
	Weaknesses   []string `json:"weaknesses,omitempty"`
	FitNotes     string   `json:"fit_notes,omitempty"`
}

// Partner is one regional partner record.
type Partner struct {
	Name            string   `json:"name"`
	Relationship    string   `json:"relationship,omitempty"`
	Country         string   `json:"country,omitempty"`
	City            string   `json:"city,omitempty"`
	Description     string   `json:"description,omitempty"`
	Specializations []string `json:"specializations,omitempty"`
	Score           float64  `json:"score"`
}

// PriceBenchmark is the structured pricing summary.
type PriceBenchmark struct {
	RangeLow     float64  `json:"range_low"`
	RangeHigh    float64  `json:"range_high"`
	Currency     string   `json:"currency"`
	PricingModel string   `json:"pricing_model,omitempty"`
	CostFactors  []string `json:"cost_factors,omitempty"`
	TCOFactors   []string `json:"tco_factors,omitempty"`
	Notes        []string `json:"notes,omitempty"`
}

// Report is the final compiled document. Every section is optional: an
// upstream stage that was skipped or degraded leaves its section nil.
type Report struct {
	ExecutiveSummary       string              `json:"executive_summary"`
	ServiceAnalysis        *ServiceDescription `json:"service_analysis,omitempty"`
	VendorRankings         []Vendor            `json:"vendor_rankings,omitempty"`
	PartnerRecommendations []Partner           `json:"partner_recommendations,omitempty"`
	PriceBenchmark         *PriceBenchmark     `json:"price_benchmark,omitempty"`
	ImplementationRoadmap  []string            `json:"implementation_roadmap,omitempty"`
	RiskAssessment         []string            `json:"risk_assessment,omitempty"`
	NextSteps              []string            `json:"next_steps,omitempty"`
	GeneratedAt            time.Time           `json:"generated_at"`
}

// State is the single record threaded through every stage of one run.
// Fields are populated strictly in stage order and never cleared once set.
// A State belongs to exactly one run; stages never touch it concurrently.
type State struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	Request        Request             `json:"request"`
	Clarified      *ClarifiedRequest   `json:"clarified_request,omitempty"`
	Description    *ServiceDescription `json:"service_description,omitempty"`
	Vendors        []Vendor            `json:"vendors,omitempty"`
	Partners       []Partner           `json:"partners,omitempty"`
	PriceBenchmark *PriceBenchmark     `json:"price_benchmark,omitempty"`
	Report         *Report             `json:"report,omitempty"`

	Status       Status        `json:"status"`
	StageHistory []Attempt     `json:"stage_history"`
	RetryCounts  map[Stage]int `json:"retry_counts"`
	LastError    string        `json:"last_error,omitempty"`
}

// NewState creates the state for a fresh run.
func NewState(req Request) *State {
	return &State{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now(),
		Request:     req,
		Status:      StatusPending,
		RetryCounts: make(map[Stage]int),
	}
}

// RecordAttempt appends one entry to the stage history and, on failure,
// increments the stage's retry count. All history and retry bookkeeping
// goes through here so the audit trail stays consistent.
func (s *State) RecordAttempt(stage Stage, status AttemptStatus, err error) {
	attempt := Attempt{Stage: stage, Status: status, Timestamp: time.Now()}
	if err != nil {
		attempt.Error = err.Error()
		s.LastError = err.Error()
	}
	s.StageHistory = append(s.StageHistory, attempt)
	if status == AttemptFailed {
		s.RetryCounts[stage]++
	}
}

// CanRetry reports whether the stage has retry budget remaining.
func (s *State) CanRetry(stage Stage, maxRetries int) bool {
	return s.RetryCounts[stage] < maxRetries
}

// Attempts returns the number of history entries for the stage.
func (s *State) Attempts(stage Stage) int {
	n := 0
	for _, a := range s.StageHistory {
		if a.Stage == stage {
			n++
		}
	}
	return n
}
