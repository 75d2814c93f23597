// Package validation normalizes and validates create and update requests
// before they reach the store.
package validation

import (
	"fmt"
	"net"
	"strings"
	"unicode"

	"github.com/bcnelson/recon-tracker/internal/domain"
)

// NormalizeHost trims surrounding whitespace and lower-cases a host name.
// Subdomain uniqueness is decided on the normalized form.
func NormalizeHost(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateHostName validates a domain or subdomain that has already been
// normalized. Wildcards ("*.example.com") are accepted since recon tools
// report them.
func ValidateHostName(name string) error {
	if name == "" {
		return fmt.Errorf("must not be empty")
	}
	if len(name) > 253 {
		return fmt.Errorf("must be at most 253 characters")
	}
	for _, r := range name {
		if unicode.IsSpace(r) || r == '/' {
			return fmt.Errorf("must not contain whitespace or '/'")
		}
	}
	return nil
}

// ValidateIPAddress validates an optional IP address.
func ValidateIPAddress(addr string) error {
	if addr == "" {
		return nil
	}
	if net.ParseIP(addr) == nil {
		return fmt.Errorf("must be a valid IP address")
	}
	return nil
}

// ValidateCVSS validates a CVSS base score.
func ValidateCVSS(score *float64) error {
	if score == nil {
		return nil
	}
	if *score < 0 || *score > 10 {
		return fmt.Errorf("must be between 0 and 10")
	}
	return nil
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func required(errs *ValidationErrors, field, value string) {
	if value == "" {
		errs.Add(field, value, "is required")
	}
}

// CreateProject normalizes req in place and validates it.
func CreateProject(req *domain.CreateProjectRequest) error {
	var errs ValidationErrors

	req.Name = strings.TrimSpace(req.Name)
	req.Domain = NormalizeHost(req.Domain)
	req.Client = strings.TrimSpace(req.Client)
	req.Description = strings.TrimSpace(req.Description)

	required(&errs, "name", req.Name)
	required(&errs, "client", req.Client)
	if err := ValidateHostName(req.Domain); err != nil {
		errs.Add("domain", req.Domain, err.Error())
	}
	if req.Status != "" && !req.Status.IsValid() {
		errs.Add("status", string(req.Status), "must be one of in-progress, completed, archived")
	}

	return errs.Err()
}

// UpdateProject normalizes req in place and validates the fields it sets.
func UpdateProject(req *domain.UpdateProjectRequest) error {
	var errs ValidationErrors

	trimPtr(req.Name)
	trimPtr(req.Client)
	trimPtr(req.Description)
	if req.Domain != nil {
		*req.Domain = NormalizeHost(*req.Domain)
		if err := ValidateHostName(*req.Domain); err != nil {
			errs.Add("domain", *req.Domain, err.Error())
		}
	}
	if req.Name != nil {
		required(&errs, "name", *req.Name)
	}
	if req.Client != nil {
		required(&errs, "client", *req.Client)
	}
	if req.Status != nil && !req.Status.IsValid() {
		errs.Add("status", string(*req.Status), "must be one of in-progress, completed, archived")
	}

	return errs.Err()
}

// CreateSubdomain normalizes req in place and validates it.
func CreateSubdomain(req *domain.CreateSubdomainRequest) error {
	var errs ValidationErrors

	req.Subdomain = NormalizeHost(req.Subdomain)
	req.IPAddress = strings.TrimSpace(req.IPAddress)
	req.Notes = strings.TrimSpace(req.Notes)

	if err := ValidateHostName(req.Subdomain); err != nil {
		errs.Add("subdomain", req.Subdomain, err.Error())
	}
	if err := ValidateIPAddress(req.IPAddress); err != nil {
		errs.Add("ipAddress", req.IPAddress, err.Error())
	}
	if req.Status != "" && !req.Status.IsValid() {
		errs.Add("status", string(req.Status), "must be one of active, inactive")
	}

	return errs.Err()
}

// UpdateSubdomain normalizes req in place and validates the fields it sets.
func UpdateSubdomain(req *domain.UpdateSubdomainRequest) error {
	var errs ValidationErrors

	trimPtr(req.IPAddress)
	trimPtr(req.Notes)
	if req.Subdomain != nil {
		*req.Subdomain = NormalizeHost(*req.Subdomain)
		if err := ValidateHostName(*req.Subdomain); err != nil {
			errs.Add("subdomain", *req.Subdomain, err.Error())
		}
	}
	if req.IPAddress != nil {
		if err := ValidateIPAddress(*req.IPAddress); err != nil {
			errs.Add("ipAddress", *req.IPAddress, err.Error())
		}
	}
	if req.Status != nil && !req.Status.IsValid() {
		errs.Add("status", string(*req.Status), "must be one of active, inactive")
	}

	return errs.Err()
}

const categoryMessage = "must be one of server, framework, cms, library, database, language, cdn, analytics, other"

// CreateTechnology normalizes req in place and validates it.
func CreateTechnology(req *domain.CreateTechnologyRequest) error {
	var errs ValidationErrors

	req.Technology = strings.TrimSpace(req.Technology)
	req.Version = strings.TrimSpace(req.Version)
	req.Notes = strings.TrimSpace(req.Notes)

	required(&errs, "technology", req.Technology)
	if req.Category != "" && !req.Category.IsValid() {
		errs.Add("category", string(req.Category), categoryMessage)
	}

	return errs.Err()
}

// UpdateTechnology normalizes req in place and validates the fields it sets.
func UpdateTechnology(req *domain.UpdateTechnologyRequest) error {
	var errs ValidationErrors

	trimPtr(req.Technology)
	trimPtr(req.Version)
	trimPtr(req.Notes)
	if req.Technology != nil {
		required(&errs, "technology", *req.Technology)
	}
	if req.Category != nil && !req.Category.IsValid() {
		errs.Add("category", string(*req.Category), categoryMessage)
	}

	return errs.Err()
}

const vulnStatusMessage = "must be one of open, confirmed, remediated, false-positive, accepted"

func severity(errs *ValidationErrors, s *domain.Severity) {
	parsed, err := domain.ParseSeverity(string(*s))
	*s = parsed
	if err != nil {
		errs.Add("severity", string(parsed), err.Error())
	}
}

// CreateVulnerability normalizes req in place and validates it.
func CreateVulnerability(req *domain.CreateVulnerabilityRequest) error {
	var errs ValidationErrors

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.CVE = strings.TrimSpace(req.CVE)
	req.Proof = strings.TrimSpace(req.Proof)
	req.Remediation = strings.TrimSpace(req.Remediation)
	req.AffectedURL = strings.TrimSpace(req.AffectedURL)
	req.Impact = strings.TrimSpace(req.Impact)

	required(&errs, "title", req.Title)
	severity(&errs, &req.Severity)
	if err := ValidateCVSS(req.CVSS); err != nil {
		errs.Add("cvss", fmt.Sprint(*req.CVSS), err.Error())
	}
	if req.Status != "" && !req.Status.IsValid() {
		errs.Add("status", string(req.Status), vulnStatusMessage)
	}

	return errs.Err()
}

// UpdateVulnerability normalizes req in place and validates the fields it sets.
func UpdateVulnerability(req *domain.UpdateVulnerabilityRequest) error {
	var errs ValidationErrors

	trimPtr(req.Title)
	trimPtr(req.Description)
	trimPtr(req.CVE)
	trimPtr(req.Proof)
	trimPtr(req.Remediation)
	trimPtr(req.AffectedURL)
	trimPtr(req.Impact)
	if req.Title != nil {
		required(&errs, "title", *req.Title)
	}
	if req.Severity != nil {
		severity(&errs, req.Severity)
	}
	if err := ValidateCVSS(req.CVSS); err != nil {
		errs.Add("cvss", fmt.Sprint(*req.CVSS), err.Error())
	}
	if req.Status != nil && !req.Status.IsValid() {
		errs.Add("status", string(*req.Status), vulnStatusMessage)
	}

	return errs.Err()
}
