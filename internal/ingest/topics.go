package ingest

import "strings"

// MergeTopics combines a project's existing topic list with newly
// extracted topics. Elements are trimmed, empties dropped, and duplicates
// discarded while preserving first-seen order: a later duplicate of an
// already-seen topic is ignored, not moved. Merging the same incoming
// list twice yields the same result as merging it once.
func MergeTopics(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))

	for _, topic := range append(append([]string{}, existing...), incoming...) {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		merged = append(merged, topic)
	}

	return merged
}
