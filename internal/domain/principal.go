package domain

// Principal is the current actor as resolved from the session token.
// An empty Role means the request is unauthenticated.
type Principal struct {
	Subject string
	Email   string
	Role    string
}

func (p Principal) Authenticated() bool {
	return p.Role != ""
}
