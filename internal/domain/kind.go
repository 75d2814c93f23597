package domain

// Kind names one of the four record kinds in the hierarchy.
type Kind string

const (
	KindProject       Kind = "project"
	KindSubdomain     Kind = "subdomain"
	KindTechnology    Kind = "technology"
	KindVulnerability Kind = "vulnerability"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}
