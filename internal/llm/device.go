package llm

// executionProviders returns execution-device candidates in preference order.
// Platform providers (cuda, metal) would be prepended here once their
// runtimes are wired in; cpu is the guaranteed fallback and the first
// candidate is adopted as the active device.
func executionProviders() []string {
	return []string{"cpu"}
}
