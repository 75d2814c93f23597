package domain

import "time"

// ProjectSummary is the slice of a project embedded in a subdomain detail bundle.
type ProjectSummary struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Domain string `json:"domain" yaml:"domain"`
	Client string `json:"client" yaml:"client"`
}

// SubdomainStats holds the derived counts of a subdomain detail bundle.
type SubdomainStats struct {
	TotalTechnologies       int `json:"totalTechnologies"`
	TotalVulnerabilities    int `json:"totalVulnerabilities"`
	CriticalVulnerabilities int `json:"criticalVulnerabilities"`
}

// SubdomainDetail is a subdomain together with its parent summary and all
// of its children.
type SubdomainDetail struct {
	Subdomain       *Subdomain       `json:"subdomain"`
	Project         ProjectSummary   `json:"project"`
	Technologies    []*Technology    `json:"technologies"`
	Vulnerabilities []*Vulnerability `json:"vulnerabilities"`
	Stats           SubdomainStats   `json:"stats"`
}

// SubdomainWithChildren is a subdomain with its technologies and
// vulnerabilities embedded, as returned by the per-project listing.
type SubdomainWithChildren struct {
	*Subdomain
	Technologies    []*Technology    `json:"technologies"`
	Vulnerabilities []*Vulnerability `json:"vulnerabilities"`
}

// SeverityCounts is the number of vulnerabilities in each severity bucket.
type SeverityCounts struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
	Low      int `json:"low" yaml:"low"`
	Info     int `json:"info" yaml:"info"`
}

// Add increments the bucket for s. Unknown severities are ignored.
func (c *SeverityCounts) Add(s Severity) {
	switch s {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	case SeverityInfo:
		c.Info++
	}
}

// Merge adds every bucket of o into c.
func (c *SeverityCounts) Merge(o SeverityCounts) {
	c.Critical += o.Critical
	c.High += o.High
	c.Medium += o.Medium
	c.Low += o.Low
	c.Info += o.Info
}

// Total returns the sum of all buckets.
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}

// ProjectStats is the vulnerability roll-up for a project.
type ProjectStats struct {
	TotalSubdomains           int            `json:"totalSubdomains" yaml:"totalSubdomains"`
	TotalVulnerabilities      int            `json:"totalVulnerabilities" yaml:"totalVulnerabilities"`
	VulnerabilitiesBySeverity SeverityCounts `json:"vulnerabilitiesBySeverity" yaml:"vulnerabilitiesBySeverity"`
}

// ExportProject is the project portion of an export bundle.
type ExportProject struct {
	Name        string        `json:"name" yaml:"name"`
	Domain      string        `json:"domain" yaml:"domain"`
	Client      string        `json:"client" yaml:"client"`
	StartDate   time.Time     `json:"startDate" yaml:"startDate"`
	EndDate     *time.Time    `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Status      ProjectStatus `json:"status" yaml:"status"`
	Description string        `json:"description" yaml:"description"`
}

// ExportTechnology is a technology projected for export.
type ExportTechnology struct {
	Technology string       `json:"technology" yaml:"technology"`
	Version    string       `json:"version" yaml:"version"`
	Category   TechCategory `json:"category" yaml:"category"`
	Notes      string       `json:"notes" yaml:"notes"`
}

// ExportVulnerability is a vulnerability projected for export.
type ExportVulnerability struct {
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	Severity      Severity   `json:"severity" yaml:"severity"`
	CVSS          *float64   `json:"cvss,omitempty" yaml:"cvss,omitempty"`
	CVE           string     `json:"cve" yaml:"cve"`
	Status        VulnStatus `json:"status" yaml:"status"`
	Proof         string     `json:"proof" yaml:"proof"`
	Remediation   string     `json:"remediation" yaml:"remediation"`
	DiscoveryDate time.Time  `json:"discoveryDate" yaml:"discoveryDate"`
	AffectedURL   string     `json:"affectedUrl" yaml:"affectedUrl"`
	Impact        string     `json:"impact" yaml:"impact"`
}

// ExportSubdomain is one subdomain entry of an export bundle.
type ExportSubdomain struct {
	Subdomain       string                `json:"subdomain" yaml:"subdomain"`
	IPAddress       string                `json:"ipAddress" yaml:"ipAddress"`
	Status          SubdomainStatus       `json:"status" yaml:"status"`
	DiscoveryDate   time.Time             `json:"discoveryDate" yaml:"discoveryDate"`
	Notes           string                `json:"notes" yaml:"notes"`
	Technologies    []ExportTechnology    `json:"technologies" yaml:"technologies"`
	Vulnerabilities []ExportVulnerability `json:"vulnerabilities" yaml:"vulnerabilities"`
}

// ExportBundle is a self-contained document describing a whole project.
// It is also the input format of an import.
type ExportBundle struct {
	Project    ExportProject     `json:"project" yaml:"project"`
	Subdomains []ExportSubdomain `json:"subdomains" yaml:"subdomains"`
	Statistics ProjectStats      `json:"statistics" yaml:"statistics"`
	ExportDate time.Time         `json:"exportDate" yaml:"exportDate"`
}

// NewExportTechnology projects t for export.
func NewExportTechnology(t *Technology) ExportTechnology {
	return ExportTechnology{
		Technology: t.Technology,
		Version:    t.Version,
		Category:   t.Category,
		Notes:      t.Notes,
	}
}

// NewExportVulnerability projects v for export.
func NewExportVulnerability(v *Vulnerability) ExportVulnerability {
	return ExportVulnerability{
		Title:         v.Title,
		Description:   v.Description,
		Severity:      v.Severity,
		CVSS:          v.CVSS,
		CVE:           v.CVE,
		Status:        v.Status,
		Proof:         v.Proof,
		Remediation:   v.Remediation,
		DiscoveryDate: v.DiscoveryDate,
		AffectedURL:   v.AffectedURL,
		Impact:        v.Impact,
	}
}
