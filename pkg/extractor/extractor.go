// Package extractor maps upstream builder documents onto models.Builder.
//
// Upstream exports are inconsistent about field names and nesting, so every field is read with a
// JMESPath expression that tries the known spellings in order.
package extractor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jmespath/go-jmespath"

	"github.com/syed-c/standzon-sub002/pkg/models"
)

// UnknownLocation fills a missing city or country
const UnknownLocation = "Unknown"

var (
	// ErrInvalidDocument is returned when a document cannot be mapped
	ErrInvalidDocument = errors.New("invalid builder document")
	// ErrDuplicateID is returned when two documents of one batch map to the same builder id
	ErrDuplicateID = errors.New("duplicate builder id")
)

// IDFunc assigns an id to a document that carries none. index is the document's position in its batch.
type IDFunc func(index int, raw map[string]any) string

// RandomID assigns a fresh uuid
func RandomID(int, map[string]any) string {
	return uuid.NewString()
}

// RowID assigns an id from the document's position, so re-reading an unchanged file yields the same ids
func RowID(index int, _ map[string]any) string {
	return fmt.Sprintf("row-%d", index+1)
}

// Option configures a BuilderMapper
type Option func(*BuilderMapper)

// WithIDFunc sets how id-less documents are named. The default is RandomID.
func WithIDFunc(fn IDFunc) Option {
	return func(m *BuilderMapper) {
		if fn != nil {
			m.idFunc = fn
		}
	}
}

// Paths holds the JMESPath expression used for each builder field
type Paths struct {
	ID                string
	CompanyName       string
	Email             string
	Phone             string
	ContactPerson     string
	Website           string
	City              string
	Country           string
	Verified          string
	Rating            string
	ProjectsCompleted string
	Source            string
	GMBImported       string
	ClaimStatus       string
}

// DefaultPaths returns the field expressions for the marketplace export format
func DefaultPaths() Paths {
	return Paths{
		ID:                "id || _id",
		CompanyName:       "companyName || company_name || name",
		Email:             "contactInfo.primaryEmail || primaryEmail || primary_email || email",
		Phone:             "contactInfo.phone || phone",
		ContactPerson:     "contactInfo.contactPerson || contact_person || contactPerson",
		Website:           "contactInfo.website || website",
		City:              "headquarters.city || headquarters_city || city",
		Country:           "headquarters.country || headquarters_country || country",
		Verified:          "verified || isVerified || is_verified",
		Rating:            "rating",
		ProjectsCompleted: "projectsCompleted || projects_completed",
		Source:            "source",
		GMBImported:       "gmbImported || gmb_imported",
		ClaimStatus:       "claimStatus || claim_status",
	}
}

// BuilderMapper maps raw documents to builders. It is safe for concurrent use.
type BuilderMapper struct {
	paths  Paths
	idFunc IDFunc
	cache  map[string]*jmespath.JMESPath
	mu     sync.RWMutex
}

// NewBuilderMapper creates a mapper using the given paths
func NewBuilderMapper(paths Paths, opts ...Option) *BuilderMapper {
	m := &BuilderMapper{
		paths:  paths,
		idFunc: RandomID,
		cache:  make(map[string]*jmespath.JMESPath),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map converts one upstream document into a builder
func (m *BuilderMapper) Map(raw map[string]any) (models.Builder, error) {
	return m.mapDocument(0, raw)
}

func (m *BuilderMapper) mapDocument(index int, raw map[string]any) (models.Builder, error) {
	var b models.Builder
	if raw == nil {
		return b, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	var err error
	str := func(expr string) string {
		if err != nil {
			return ""
		}
		var v string
		v, err = m.evaluateString(expr, raw)
		return v
	}

	b.ID = str(m.paths.ID)
	b.CompanyName = str(m.paths.CompanyName)
	b.Email = str(m.paths.Email)
	b.Phone = str(m.paths.Phone)
	b.ContactPerson = str(m.paths.ContactPerson)
	b.Website = str(m.paths.Website)
	b.City = str(m.paths.City)
	b.Country = str(m.paths.Country)
	b.Source = str(m.paths.Source)
	b.ClaimStatus = str(m.paths.ClaimStatus)
	if err != nil {
		return b, err
	}

	if b.Verified, err = m.evaluateBool(m.paths.Verified, raw); err != nil {
		return b, err
	}
	if b.GMBImported, err = m.evaluateBool(m.paths.GMBImported, raw); err != nil {
		return b, err
	}
	if b.Rating, err = m.evaluateFloat(m.paths.Rating, raw); err != nil {
		return b, err
	}
	projects, err := m.evaluateFloat(m.paths.ProjectsCompleted, raw)
	if err != nil {
		return b, err
	}
	b.ProjectsCompleted = int(projects)

	if strings.TrimSpace(b.ID) == "" {
		b.ID = m.idFunc(index, raw)
	}
	if strings.TrimSpace(b.City) == "" {
		b.City = UnknownLocation
	}
	if strings.TrimSpace(b.Country) == "" {
		b.Country = UnknownLocation
	}
	if b.ClaimStatus == "" {
		b.ClaimStatus = models.ClaimStatusUnclaimed
	}

	return b, nil
}

// MapAll maps a batch of documents, reporting the index of the first document that fails.
// Two documents resolving to the same id fail the batch.
func (m *BuilderMapper) MapAll(docs []map[string]any) ([]models.Builder, error) {
	builders := make([]models.Builder, 0, len(docs))
	seen := make(map[string]int, len(docs))
	for i, doc := range docs {
		b, err := m.mapDocument(i, doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if first, ok := seen[b.ID]; ok {
			return nil, fmt.Errorf("document %d: %w %q, first used by document %d", i, ErrDuplicateID, b.ID, first)
		}
		seen[b.ID] = i
		builders = append(builders, b)
	}
	return builders, nil
}

func (m *BuilderMapper) evaluate(expression string, data any) (any, error) {
	if expression == "" {
		return nil, nil
	}

	compiled, err := m.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	result, err := compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}
	return result, nil
}

func (m *BuilderMapper) evaluateString(expression string, data any) (string, error) {
	result, err := m.evaluate(expression, data)
	if err != nil || result == nil {
		return "", err
	}

	switch v := result.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("%w: expression %q returned %T", ErrInvalidDocument, expression, result)
	}
}

func (m *BuilderMapper) evaluateBool(expression string, data any) (bool, error) {
	result, err := m.evaluate(expression, data)
	if err != nil || result == nil {
		return false, err
	}

	switch v := result.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidDocument, v)
		}
		return parsed, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("%w: expression %q returned %T", ErrInvalidDocument, expression, result)
	}
}

func (m *BuilderMapper) evaluateFloat(expression string, data any) (float64, error) {
	result, err := m.evaluate(expression, data)
	if err != nil || result == nil {
		return 0, err
	}

	switch v := result.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidDocument, v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("%w: expression %q returned %T", ErrInvalidDocument, expression, result)
	}
}

func (m *BuilderMapper) getOrCompile(expression string) (*jmespath.JMESPath, error) {
	m.mu.RLock()
	if compiled, ok := m.cache[expression]; ok {
		m.mu.RUnlock()
		return compiled, nil
	}
	m.mu.RUnlock()

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[expression] = compiled
	m.mu.Unlock()

	return compiled, nil
}
