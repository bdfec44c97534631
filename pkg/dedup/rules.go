package dedup

import (
	"fmt"
	"strings"

	"github.com/syed-c/standzon-sub002/pkg/models"
	"github.com/syed-c/standzon-sub002/pkg/normalizers"
)

// DefaultPhoneMinDigits is the shortest normalized phone number that can match
const DefaultPhoneMinDigits = 7

// Key holds the normalized fields of a builder that the match rules compare.
// An empty field means the source value was missing or blank.
type Key struct {
	ID       string
	Email    string
	Phone    string
	Company  string
	Location string
}

// NewKey normalizes the matchable fields of a builder
func NewKey(b *models.Builder) Key {
	k := Key{
		ID:    b.ID,
		Email: normalizers.Apply(b.Email, normalizers.NameEmail),
		Phone: normalizers.Apply(b.Phone, normalizers.NamePhone),
	}
	if !normalizers.IsBlank(b.CompanyName) && !normalizers.IsBlank(b.City) && !normalizers.IsBlank(b.Country) {
		k.Company = normalizers.Apply(b.CompanyName, normalizers.NameCompany)
		k.Location = normalizers.LocationKey(b.City, b.Country)
	}
	return k
}

// Rule decides whether two builders are the same business
type Rule interface {
	Reason() models.MatchReason
	Match(a, b Key) bool
}

// EmailRule matches builders sharing a non-blank email address
type EmailRule struct{}

func (EmailRule) Reason() models.MatchReason { return models.MatchReasonEmail }

func (EmailRule) Match(a, b Key) bool {
	return a.Email != "" && a.Email == b.Email
}

// PhoneRule matches builders whose digit-only phone numbers are equal and long enough
type PhoneRule struct {
	MinDigits int
}

func (PhoneRule) Reason() models.MatchReason { return models.MatchReasonPhone }

func (r PhoneRule) Match(a, b Key) bool {
	if a.Phone == "" || len(a.Phone) < r.MinDigits || len(b.Phone) < r.MinDigits {
		return false
	}
	return a.Phone == b.Phone
}

// NameLocationRule matches builders with the same company name in the same city and country
type NameLocationRule struct{}

func (NameLocationRule) Reason() models.MatchReason { return models.MatchReasonNameLocation }

func (NameLocationRule) Match(a, b Key) bool {
	if a.Company == "" || b.Company == "" {
		return false
	}
	return a.Company == b.Company && a.Location == b.Location
}

// Rule names accepted by RulesByName
const (
	RuleEmail        = "email"
	RulePhone        = "phone"
	RuleNameLocation = "name-location"
)

// DefaultRules returns the rules in priority order: email, phone, name and location.
// A phone threshold below DefaultPhoneMinDigits is raised to it.
func DefaultRules(phoneMinDigits int) []Rule {
	return []Rule{
		EmailRule{},
		PhoneRule{MinDigits: clampPhoneDigits(phoneMinDigits)},
		NameLocationRule{},
	}
}

// RulesByName builds a rule ladder from rule names, keeping the order given
func RulesByName(names []string, phoneMinDigits int) ([]Rule, error) {
	rules := make([]Rule, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			return nil, fmt.Errorf("rule %q listed twice", name)
		}
		seen[name] = true

		switch name {
		case RuleEmail:
			rules = append(rules, EmailRule{})
		case RulePhone:
			rules = append(rules, PhoneRule{MinDigits: clampPhoneDigits(phoneMinDigits)})
		case RuleNameLocation:
			rules = append(rules, NameLocationRule{})
		default:
			return nil, fmt.Errorf("unknown rule %q, expected %s, %s or %s", name, RuleEmail, RulePhone, RuleNameLocation)
		}
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("at least one rule is required")
	}
	return rules, nil
}

func clampPhoneDigits(n int) int {
	if n < DefaultPhoneMinDigits {
		return DefaultPhoneMinDigits
	}
	return n
}
