package domain

// Identity is the acting user resolved from a bearer token.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// DisplayName returns the name recorded as raised_by, falling back to the id.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.UserID
}
