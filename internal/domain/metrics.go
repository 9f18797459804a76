package domain

// ChatMetrics is the snapshot served by GET /v1/metrics/chat.
type ChatMetrics struct {
	TotalTurns      int64   `json:"total_turns"`
	CannedHits      int64   `json:"canned_hits"`
	LLMCalls        int64   `json:"llm_calls"`
	LLMFallbacks    int64   `json:"llm_fallbacks"`
	ExternalErrors  int64   `json:"external_errors"`
	CannedHitRate   float64 `json:"canned_hit_rate"`
	LLMFallbackRate float64 `json:"llm_fallback_rate"`
	ErrorRate       float64 `json:"error_rate"`
	Period          string  `json:"period"`
}

// ServiceHealth describes one dependency in the health report.
type ServiceHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

// HealthStatus is the aggregate health report.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
}
