package access

import (
	"github.com/mkravets/travelbooking/internal/domain"
)

// Authorize reports whether the principal may enter a view protected by
// the given role set. Membership is an exact string match: no hierarchy,
// no wildcards, and an unauthenticated principal is always denied. The
// decision is pure and re-evaluated on every call.
func Authorize(p domain.Principal, required []string) bool {
	if !p.Authenticated() {
		return false
	}
	for _, role := range required {
		if p.Role == role {
			return true
		}
	}
	return false
}
