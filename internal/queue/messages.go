package queue

// SourceRef names one source export to pull into a rebuild. Source must be
// one of the known source kinds; Path is an object key in the configured
// bucket, or a prefix ending in "/" that expands to every CSV beneath it.
type SourceRef struct {
	Source string `json:"source"`
	Path   string `json:"path"`
}

// RebuildMsg asks the worker to rebuild one graph from scratch.
type RebuildMsg struct {
	Message       string      `json:"message,omitempty"`
	CorrelationID string      `json:"correlation_id"`
	GraphID       string      `json:"graph_id"`
	Sources       []SourceRef `json:"sources"`
}

// DeleteMsg asks the worker to drop every stored build of a graph.
type DeleteMsg struct {
	Message       string `json:"message,omitempty"`
	CorrelationID string `json:"correlation_id"`
	GraphID       string `json:"graph_id"`
}
