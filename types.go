package pantryplanner

import "net/http"

// Assist providers selectable through PlannerConfig.AssistProvider.
const (
	ProviderNone    = "none"
	ProviderBedrock = "bedrock"
	ProviderOllama  = "ollama"
	ProviderGemini  = "gemini"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
