package domain

import "time"

// VulnStatus tracks a finding through triage and remediation.
type VulnStatus string

const (
	VulnOpen          VulnStatus = "open"
	VulnConfirmed     VulnStatus = "confirmed"
	VulnRemediated    VulnStatus = "remediated"
	VulnFalsePositive VulnStatus = "false-positive"
	VulnAccepted      VulnStatus = "accepted"
)

// IsValid returns true if the status is known.
func (s VulnStatus) IsValid() bool {
	switch s {
	case VulnOpen, VulnConfirmed, VulnRemediated, VulnFalsePositive, VulnAccepted:
		return true
	default:
		return false
	}
}

// Vulnerability is a security finding recorded against a subdomain.
type Vulnerability struct {
	ID            string     `json:"id" db:"id"`
	SubdomainID   string     `json:"subdomainId" db:"subdomain_id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Severity      Severity   `json:"severity" db:"severity"`
	CVSS          *float64   `json:"cvss,omitempty" db:"cvss"`
	CVE           string     `json:"cve" db:"cve"`
	Status        VulnStatus `json:"status" db:"status"`
	Proof         string     `json:"proof" db:"proof"`
	Remediation   string     `json:"remediation" db:"remediation"`
	DiscoveryDate time.Time  `json:"discoveryDate" db:"discovery_date"`
	AffectedURL   string     `json:"affectedUrl" db:"affected_url"`
	Impact        string     `json:"impact" db:"impact"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// CreateVulnerabilityRequest is the request body for creating a vulnerability.
type CreateVulnerabilityRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Severity      Severity   `json:"severity"`
	CVSS          *float64   `json:"cvss,omitempty"`
	CVE           string     `json:"cve,omitempty"`
	Status        VulnStatus `json:"status,omitempty"`
	Proof         string     `json:"proof,omitempty"`
	Remediation   string     `json:"remediation,omitempty"`
	DiscoveryDate *time.Time `json:"discoveryDate,omitempty"`
	AffectedURL   string     `json:"affectedUrl,omitempty"`
	Impact        string     `json:"impact,omitempty"`
}

// UpdateVulnerabilityRequest is the request body for updating a vulnerability.
type UpdateVulnerabilityRequest struct {
	Title         *string     `json:"title,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Severity      *Severity   `json:"severity,omitempty"`
	CVSS          *float64    `json:"cvss,omitempty"`
	CVE           *string     `json:"cve,omitempty"`
	Status        *VulnStatus `json:"status,omitempty"`
	Proof         *string     `json:"proof,omitempty"`
	Remediation   *string     `json:"remediation,omitempty"`
	DiscoveryDate *time.Time  `json:"discoveryDate,omitempty"`
	AffectedURL   *string     `json:"affectedUrl,omitempty"`
	Impact        *string     `json:"impact,omitempty"`
}
