package integration

import "strings"

// CustomerCandidate is the ERP customer a source order resolves to.
type CustomerCandidate struct {
	// IsPerson selects an individual record; false means a company record.
	IsPerson    bool
	FirstName   string
	LastName    string
	CompanyName string
	Email       string
	Phone       string
	// ParentCompanyID links the customer to an existing company customer.
	ParentCompanyID string
	// UniquenessSuffix is the value appended to a name to avoid ERP unique-key collisions.
	UniquenessSuffix string
	// ExternalID is the deterministic external id given to a newly created customer.
	ExternalID string
	// Existing is true when an ERP customer is reused verbatim.
	Existing bool
}

// DisplayName returns the name the ERP will show for the customer.
func (c CustomerCandidate) DisplayName() string {
	if !c.IsPerson && c.CompanyName != "" {
		return c.CompanyName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CustomerRecord is an existing ERP customer returned by a directory search.
type CustomerRecord struct {
	ID          string
	EntityID    string
	CompanyName string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	IsPerson    bool
}

// CustomerResolution is the result of resolving a source order's customer.
type CustomerResolution struct {
	Candidate  CustomerCandidate
	CustomerID string
	// Created is true when the ERP customer was created during this resolution.
	Created bool
}
