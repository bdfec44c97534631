package models

import (
	"time"

	"github.com/lib/pq"
)

// Confidence is the qualitative trust level of a duplicate group
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MatchReason describes which rule paired two builders
type MatchReason string

const (
	MatchReasonEmail        MatchReason = "same email address"
	MatchReasonPhone        MatchReason = "matching phone number"
	MatchReasonNameLocation MatchReason = "same company name and location"
)

// DuplicateGroup is a cluster of builders believed to be the same business.
// Groups are recomputed on every analysis and never stored.
type DuplicateGroup struct {
	ID         string      `json:"id" yaml:"id"`
	Duplicates []Builder   `json:"duplicates" yaml:"duplicates"`
	Reason     MatchReason `json:"reason" yaml:"reason"`
	Confidence Confidence  `json:"confidence" yaml:"confidence"`
}

// MemberIDs returns the ids of the group's members in discovery order
func (g DuplicateGroup) MemberIDs() []string {
	return BuilderIDs(g.Duplicates)
}

// Contains reports whether the group has a member with the given id
func (g DuplicateGroup) Contains(id string) bool {
	for _, b := range g.Duplicates {
		if b.ID == id {
			return true
		}
	}
	return false
}

// ResolutionStrategy records how a group was collapsed
type ResolutionStrategy string

const (
	ResolutionStrategyManual ResolutionStrategy = "manual"
	ResolutionStrategyAuto   ResolutionStrategy = "auto"
)

// Resolution is the audit record of one resolved duplicate group
type Resolution struct {
	ID          string             `json:"id" db:"id"`
	TenantID    string             `json:"tenant_id" db:"tenant_id"`
	GroupID     string             `json:"group_id" db:"group_id"`
	Reason      MatchReason        `json:"reason" db:"reason"`
	Confidence  Confidence         `json:"confidence" db:"confidence"`
	Strategy    ResolutionStrategy `json:"strategy" db:"strategy"`
	SurvivorID  string             `json:"survivor_id" db:"survivor_id"`
	RemovedIDs  pq.StringArray     `json:"removed_ids" db:"removed_ids"`
	PerformedBy *string            `json:"performed_by,omitempty" db:"performed_by"`
	PerformedAt time.Time          `json:"performed_at" db:"performed_at"`
}

// AnalysisResult is the outcome of one duplicate analysis pass
type AnalysisResult struct {
	Groups         []DuplicateGroup `json:"groups" yaml:"groups"`
	AnalyzedCount  int              `json:"analyzed_count" yaml:"analyzed_count"`
	GroupCount     int              `json:"group_count" yaml:"group_count"`
	DuplicateCount int              `json:"duplicate_count" yaml:"duplicate_count"`
	AnalyzedAt     time.Time        `json:"analyzed_at" yaml:"analyzed_at"`
}

// AutoResolveResult is the outcome of automatically resolving high confidence groups
type AutoResolveResult struct {
	Resolutions  []Resolution     `json:"resolutions" yaml:"resolutions"`
	RemovedCount int              `json:"removed_count" yaml:"removed_count"`
	Remaining    []DuplicateGroup `json:"remaining" yaml:"remaining"`
}

// ResolveGroupRequest is the request to keep one builder of a duplicate group
type ResolveGroupRequest struct {
	KeepID string `json:"keep_id" validate:"required"`
}
