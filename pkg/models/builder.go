package models

import "time"

// Builder is a single exhibition-stand builder listing
type Builder struct {
	ID                string     `json:"id" yaml:"id" db:"id"`
	TenantID          string     `json:"tenant_id" yaml:"tenant_id" db:"tenant_id"`
	CompanyName       string     `json:"company_name" yaml:"company_name" db:"company_name"`
	Email             string     `json:"email" yaml:"email" db:"email"`
	Phone             string     `json:"phone" yaml:"phone" db:"phone"`
	ContactPerson     string     `json:"contact_person" yaml:"contact_person" db:"contact_person"`
	Website           string     `json:"website" yaml:"website" db:"website"`
	City              string     `json:"city" yaml:"city" db:"city"`
	Country           string     `json:"country" yaml:"country" db:"country"`
	Verified          bool       `json:"verified" yaml:"verified" db:"verified"`
	Rating            float64    `json:"rating" yaml:"rating" db:"rating"`
	ProjectsCompleted int        `json:"projects_completed" yaml:"projects_completed" db:"projects_completed"`
	Source            string     `json:"source" yaml:"source" db:"source"`
	GMBImported       bool       `json:"gmb_imported" yaml:"gmb_imported" db:"gmb_imported"`
	ClaimStatus       string     `json:"claim_status" yaml:"claim_status" db:"claim_status"`
	DuplicateOfID     *string    `json:"duplicate_of_id,omitempty" yaml:"duplicate_of_id,omitempty" db:"duplicate_of_id"`
	CreatedAt         time.Time  `json:"created_at" yaml:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" yaml:"updated_at" db:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty" db:"deleted_at"`
}

// Builder claim statuses
const (
	ClaimStatusUnclaimed = "unclaimed"
	ClaimStatusPending   = "pending"
	ClaimStatusVerified  = "verified"
	ClaimStatusRejected  = "rejected"
)

// BuilderIDs returns the ids of the given builders in order
func BuilderIDs(builders []Builder) []string {
	ids := make([]string, len(builders))
	for i, b := range builders {
		ids[i] = b.ID
	}
	return ids
}
