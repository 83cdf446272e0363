package models

import (
	"time"

	"github.com/google/uuid"
)

// LicenseStatus is the lifecycle state recorded on a license
type LicenseStatus string

const (
	LicenseStatusActive   LicenseStatus = "Active"
	LicenseStatusInactive LicenseStatus = "Inactive"
	LicenseStatusPending  LicenseStatus = "Pending"
)

// Valid reports whether s is one of the known statuses
func (s LicenseStatus) Valid() bool {
	switch s {
	case LicenseStatusActive, LicenseStatusInactive, LicenseStatusPending:
		return true
	}
	return false
}

// DateLayout is the wire and display layout for calendar dates
const DateLayout = "2006-01-02"

type License struct {
	ID                     uuid.UUID     `json:"id" db:"id"`
	RegistrationNo         string        `json:"registration_no" db:"registration_no"`
	CompanyID              *uuid.UUID    `json:"company_id" db:"company_id"`
	TagID                  *uuid.UUID    `json:"tag_id" db:"tag_id"`
	ScopeID                *uuid.UUID    `json:"scope_id" db:"scope_id"`
	CertificationAuthority *string       `json:"certification_authority" db:"certification_authority"`
	EffectiveDate          *time.Time    `json:"effective_date" db:"effective_date"`
	ValidUntil             time.Time     `json:"valid_until" db:"valid_until"`
	Status                 LicenseStatus `json:"status" db:"status"`
	Remark                 *string       `json:"remark" db:"remark"`
	CreatedAt              time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at" db:"updated_at"`

	// Joined display fields, populated on reads only
	CompanyName      *string `json:"company_name,omitempty" db:"-"`
	TagName          *string `json:"tag_name,omitempty" db:"-"`
	ScopeCode        *string `json:"scope_code,omitempty" db:"-"`
	ScopeDescription *string `json:"scope_description,omitempty" db:"-"`
}

// HasInvertedWindow reports an effective date later than valid_until
func (l *License) HasInvertedWindow() bool {
	return l.EffectiveDate != nil && l.EffectiveDate.After(l.ValidUntil)
}

// LicenseFilter narrows license reads
type LicenseFilter struct {
	ValidUntilBefore *time.Time      `json:"valid_until_before,omitempty"` // Inclusive upper bound on valid_until
	StatusOneOf      []LicenseStatus `json:"status_one_of,omitempty"`
	CompanyID        *uuid.UUID      `json:"company_id,omitempty"`
	TagID            *uuid.UUID      `json:"tag_id,omitempty"`
	Limit            int             `json:"limit,omitempty"`
	Offset           int             `json:"offset,omitempty"`
}

type Company struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Tag struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Scope struct {
	ID           uuid.UUID `json:"id" db:"id"`
	StandardCode string    `json:"standard_code" db:"standard_code"`
	Description  *string   `json:"description" db:"description"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
