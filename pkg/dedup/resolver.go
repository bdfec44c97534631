// Package dedup detects duplicate builder listings and collapses duplicate groups to a single survivor.
//
// Detection is a single forward pass over the records in the order given. Each unclaimed record
// seeds a group and is compared against every later unclaimed record; a record joins at most one
// group. The pass is quadratic in the number of records and is meant for bounded, on-demand batches.
package dedup

import (
	"fmt"
	"sort"

	"github.com/Gobusters/ectolinq"

	"github.com/syed-c/standzon-sub002/pkg/fingerprint"
	"github.com/syed-c/standzon-sub002/pkg/models"
)

// Config contains configuration for the resolver
type Config struct {
	PhoneMinDigits int    // Shortest normalized phone number that can match (default: 7)
	Rules          []Rule // Overrides the default rule ladder when set
}

// DefaultConfig returns default resolver configuration
func DefaultConfig() Config {
	return Config{
		PhoneMinDigits: DefaultPhoneMinDigits,
	}
}

// Resolver groups duplicate builders and picks survivors. It holds no state between calls.
type Resolver struct {
	rules []Rule
}

// NewResolver creates a new resolver
func NewResolver(cfg Config) *Resolver {
	rules := cfg.Rules
	if len(rules) == 0 {
		rules = DefaultRules(cfg.PhoneMinDigits)
	}
	return &Resolver{rules: rules}
}

// GroupResolution is the survivor and removed ids for one resolved group
type GroupResolution struct {
	Group      models.DuplicateGroup
	Survivor   models.Builder
	RemovedIDs []string
}

// AutoResolution is the result of automatically resolving a set of groups
type AutoResolution struct {
	Resolved   []GroupResolution
	Remaining  []models.DuplicateGroup
	RemovedIDs []string
}

// Detect returns the duplicate groups found in records.
// Every returned group has at least two members and no record appears in more than one group.
func (r *Resolver) Detect(records []models.Builder) []models.DuplicateGroup {
	groups := make([]models.DuplicateGroup, 0)
	if len(records) < 2 {
		return groups
	}

	keys := make([]Key, len(records))
	for i := range records {
		keys[i] = NewKey(&records[i])
	}

	claimed := make(map[string]bool, len(records))
	for i := range records {
		if claimed[records[i].ID] {
			continue
		}

		members := []models.Builder{records[i]}
		var reason models.MatchReason

		for j := i + 1; j < len(records); j++ {
			if claimed[records[j].ID] {
				continue
			}

			rule := r.match(keys[i], keys[j])
			if rule == nil {
				continue
			}

			members = append(members, records[j])
			claimed[records[j].ID] = true
			if reason == "" {
				reason = rule.Reason()
			}
		}

		if len(members) < 2 {
			continue
		}
		claimed[records[i].ID] = true

		groups = append(groups, models.DuplicateGroup{
			ID:         fingerprint.GroupID(models.BuilderIDs(members)),
			Duplicates: members,
			Reason:     reason,
			Confidence: confidenceForSize(len(members)),
		})
	}

	return groups
}

// match returns the first rule that pairs a and b, or nil
func (r *Resolver) match(a, b Key) Rule {
	for _, rule := range r.rules {
		if rule.Match(a, b) {
			return rule
		}
	}
	return nil
}

// confidenceForSize sets group confidence from its size alone, whichever rule matched
func confidenceForSize(size int) models.Confidence {
	if size > 2 {
		return models.ConfidenceHigh
	}
	return models.ConfidenceMedium
}

// ResolveManually returns the ids of every member of group except keepID, in group order.
// It returns ErrInvalidKeepID when keepID is not a member.
func (r *Resolver) ResolveManually(group models.DuplicateGroup, keepID string) ([]string, error) {
	if !group.Contains(keepID) {
		return nil, fmt.Errorf("%w: builder %s, group %s", ErrInvalidKeepID, keepID, group.ID)
	}

	removed := ectolinq.Filter(group.Duplicates, func(b models.Builder) bool {
		return b.ID != keepID
	})
	return models.BuilderIDs(removed), nil
}

// AutoResolve keeps the best ranked member of every high confidence group and marks the rest
// for removal. Groups below high confidence are returned untouched in Remaining.
func (r *Resolver) AutoResolve(groups []models.DuplicateGroup) AutoResolution {
	result := AutoResolution{
		Resolved:   make([]GroupResolution, 0),
		Remaining:  make([]models.DuplicateGroup, 0),
		RemovedIDs: make([]string, 0),
	}

	for _, group := range groups {
		if group.Confidence != models.ConfidenceHigh || len(group.Duplicates) == 0 {
			result.Remaining = append(result.Remaining, group)
			continue
		}

		ranked := Rank(group.Duplicates)
		removed := models.BuilderIDs(ranked[1:])

		result.Resolved = append(result.Resolved, GroupResolution{
			Group:      group,
			Survivor:   ranked[0],
			RemovedIDs: removed,
		})
		result.RemovedIDs = append(result.RemovedIDs, removed...)
	}

	return result
}

// Rank orders builders best first: verified before unverified, then higher rating,
// then more completed projects. Full ties keep their original order. The input is not modified.
func Rank(builders []models.Builder) []models.Builder {
	ranked := make([]models.Builder, len(builders))
	copy(ranked, builders)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Verified != b.Verified {
			return a.Verified
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ProjectsCompleted > b.ProjectsCompleted
	})

	return ranked
}
