package tenants

import "time"

// Tenant is an isolated customer organisation. Every token, context value and
// entitlement record is scoped to exactly one tenant.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
