package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Severity represents the severity level of a vulnerability.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity level from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// IsValid returns true if the severity level is valid.
func (s Severity) IsValid() bool {
	return slices.Contains(Severities, s)
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity trims and lower-cases s. The normalized value is returned
// even when it is not a known severity.
func ParseSeverity(s string) (Severity, error) {
	severity := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !severity.IsValid() {
		names := make([]string, len(Severities))
		for i, sev := range Severities {
			names[i] = sev.String()
		}
		return severity, fmt.Errorf("must be one of %s", strings.Join(names, ", "))
	}
	return severity, nil
}
