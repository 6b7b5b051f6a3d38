package config

type GatewayConfig interface {
	GetUpstreamURL() string
	GetPublicRoutes() []string
	GetRateLimitPerMinute() int
}

type Gateway struct{}

var _ GatewayConfig = Gateway{}

func (Gateway) GetUpstreamURL() string {
	return GetEnv("UPSTREAM_URL", "http://localhost:8081")
}

// GetPublicRoutes lists path prefixes that bypass the edge verifier.
func (Gateway) GetPublicRoutes() []string {
	return GetList("PUBLIC_ROUTES", []string{
		"/auth/login",
		"/auth/register",
		"/auth/refresh",
		"/health",
		"/ready",
		"/docs/",
		"/.well-known/",
	})
}

func (Gateway) GetRateLimitPerMinute() int {
	return GetInt("RATE_LIMIT_PER_MINUTE", 600)
}
