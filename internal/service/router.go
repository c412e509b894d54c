package service

import "strings"

// Scenario selects the system prompt a conversation starts with.
type Scenario string

const (
	ScenarioWeather    Scenario = "weather"
	ScenarioOperations Scenario = "operations"
)

// ParseScenario maps a user-supplied name to a Scenario.
func ParseScenario(s string) (Scenario, bool) {
	switch Scenario(strings.ToLower(strings.TrimSpace(s))) {
	case ScenarioWeather:
		return ScenarioWeather, true
	case ScenarioOperations, "ops":
		return ScenarioOperations, true
	}
	return "", false
}

const operationsSystemPrompt = `You are an operations analyst. The user reports an alert. Based on the alert,
determine the current anomaly (affected object and failure pattern), call the
monitoring tools to gather evidence, then give an analysis and recommended
remediation steps. Ask for confirmation before proposing any change that
would be executed against production.`

const weatherSystemPrompt = `You are a helpful assistant. Use the weather tool for any question about
current weather and answer with the values it returns.`

// SystemPrompt returns the scenario's system prompt.
func (s Scenario) SystemPrompt() string {
	if s == ScenarioOperations {
		return operationsSystemPrompt
	}
	return weatherSystemPrompt
}

var operationsKeywords = []string{
	"alert", "alarm", "告警", "threshold", "阈值", "database", "数据库",
	"connection", "连接", "cpu", "memory", "内存", "latency", "timeout",
	"outage", "incident", "error", "exception", "logs", "server", "disk",
	"oom", "restart", "degraded", "5xx", "slow query",
}

var weatherKeywords = []string{
	"weather", "天气", "temperature", "温度", "forecast", "rain", "sunny",
	"wind", "humid", "celsius", "fahrenheit", "hot", "cold",
}

// RoutingResult contains scenario routing info.
type RoutingResult struct {
	Scenario     Scenario
	Confidence   float64
	OpsScore     int
	WeatherScore int
	Reasoning    string
}

// IntentRouter picks a scenario from the wording of the prompt.
type IntentRouter struct{}

func NewIntentRouter() *IntentRouter {
	return &IntentRouter{}
}

// Route scores the prompt against each scenario's keywords.
func (r *IntentRouter) Route(prompt string) RoutingResult {
	lower := strings.ToLower(prompt)

	opsScore := countKeywords(lower, operationsKeywords)
	weatherScore := countKeywords(lower, weatherKeywords)

	total := opsScore + weatherScore
	if total == 0 {
		return RoutingResult{
			Scenario:   ScenarioWeather,
			Confidence: 0.5,
			Reasoning:  "no strong keywords, defaulting to general assistant",
		}
	}

	if opsScore > weatherScore {
		return RoutingResult{
			Scenario:     ScenarioOperations,
			Confidence:   float64(opsScore) / float64(total),
			OpsScore:     opsScore,
			WeatherScore: weatherScore,
			Reasoning:    "prompt contains alert/monitoring keywords",
		}
	}
	return RoutingResult{
		Scenario:     ScenarioWeather,
		Confidence:   float64(weatherScore) / float64(total),
		OpsScore:     opsScore,
		WeatherScore: weatherScore,
		Reasoning:    "prompt contains weather keywords",
	}
}

func countKeywords(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}
