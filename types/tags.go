package types

// Tag keys as they appear on AWS resources.
const (
	TagName    = "Name"
	TagRole    = "Role"
	TagManaged = "varusta:managed"
)

// Tags represents resource tags as a structured type.
// No maps! Everything is explicit.
type Tags struct {
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	Managed bool   `json:"managed,omitempty"`
}

// RoleTags builds the uniform tag set for a role's resources.
func RoleTags(role string) Tags {
	return Tags{Name: role, Role: role, Managed: true}
}

// IsManaged checks if the resource carries the varusta ownership marker.
func (t Tags) IsManaged() bool {
	return t.Managed
}

// ToMap converts tags to the provider's key/value form.
func (t Tags) ToMap() map[string]string {
	m := make(map[string]string)
	if t.Name != "" {
		m[TagName] = t.Name
	}
	if t.Role != "" {
		m[TagRole] = t.Role
	}
	if t.Managed {
		m[TagManaged] = "true"
	}
	return m
}

// TagsFromMap parses the provider's key/value form.
func TagsFromMap(m map[string]string) Tags {
	return Tags{
		Name:    m[TagName],
		Role:    m[TagRole],
		Managed: m[TagManaged] == "true",
	}
}
