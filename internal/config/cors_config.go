package config

import (
	"slices"
	"strings"
)

type Cors struct{}

var _ CorsConfig = Cors{}

// AllowedOrigins is the CORS origin allow list. "*" allows any origin.
type AllowedOrigins map[string]struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a))
	for o := range a {
		origins = append(origins, o)
	}
	slices.Sort(origins)
	return strings.Join(origins, ", ")
}

func (Cors) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range GetList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}) {
		origins[o] = struct{}{}
	}
	return origins
}

func (Cors) GetAllowedMethods() string {
	return GetEnv("CORS_ALLOWED_METHODS", "GET, POST, PUT, DELETE, OPTIONS")
}

// GetAllowedHeaders covers the bearer token and the webhook tenant header.
func (Cors) GetAllowedHeaders() string {
	return GetEnv("CORS_ALLOWED_HEADERS", "Content-Type, Authorization, X-Tenant-Id")
}
