package gateway

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled bool
	corsOrigins []string
)

// SetCORSOptions configures CORS behavior for the gateway router. Must be
// called before Router().
func SetCORSOptions(enabled bool, origins []string) {
	corsEnabled = enabled
	corsOrigins = append([]string(nil), origins...)
}

func corsOriginsOrWildcard() []string {
	if len(corsOrigins) == 0 {
		return []string{"*"}
	}
	return corsOrigins
}
