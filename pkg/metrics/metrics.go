// Package metrics holds the Prometheus collectors exported by the OccasionBuddy processes.
package metrics

const namespace = "occasionbuddy"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
