package internal

const (
	ConformancedEnvManifest = "CONFORMANCE_MANIFEST"
	// comma separated, any one is accepted
	ConformancedEnvToken = "CONFORMANCE_TOKENS"

	ConformancedPort        = 1234
	ConformancedMetricsPort = 5678

	ConformancedReadinessEndpointPath = "/readyz"

	// Largest instance accepted for validation over http.
	MaxBodySize = 4 << 20

	DefaultManifest = "conformance.yaml"
)
