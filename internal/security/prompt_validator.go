package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxPromptLength applies when NewPromptValidator gets no limit.
const DefaultMaxPromptLength = 2000

type promptRule struct {
	name string
	re   *regexp.Regexp
}

// promptRules match attempts to steer the model or reach secrets. Quoting a
// command or a path in an alert is fine.
var promptRules = []promptRule{
	{"instruction override", regexp.MustCompile(`(?i)\b(ignore|disregard|forget|override)\s+(all\s+)?(the\s+)?(previous|prior|above)\s+instructions`)},
	{"instruction override", regexp.MustCompile(`(?i)instead\s+of\s+the\s+above`)},
	{"context switch", regexp.MustCompile(`(?i)\b(new|change)\s+context\s*:`)},
	{"role hijack", regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(in\s+)?(developer\s+mode|dan|jailbroken|unrestricted)`)},
	{"system prompt extraction", regexp.MustCompile(`(?i)\b(reveal|print|repeat|show)\s+(me\s+)?(your|the)\s+(system\s+prompt|hidden\s+instructions)`)},
	{"forged tool message", regexp.MustCompile(`(?i)<\s*/?\s*(tool_call|tool_result|function_call|tool_use)\b`)},
	{"secret file", regexp.MustCompile(`/etc/(passwd|shadow|sudoers)|\bid_(rsa|ed25519)\b|\.ssh/|\.aws/credentials`)},
	{"path traversal", regexp.MustCompile(`(\.\./){2,}`)},
	{"remote script", regexp.MustCompile(`(?i)\b(curl|wget)\b[^|\n]*\|\s*(sudo\s+)?(ba|z)?sh\b`)},
	{"destructive command", regexp.MustCompile(`(?i)\brm\s+-(rf|fr|r)\s+/`)},
	{"code execution", regexp.MustCompile(`(?i)\b(eval|exec|popen|__import__)\s*\(|\bos\.system\b|\bsubprocess\.`)},
}

// PromptValidator screens user prompts before they enter a conversation:
// length, injection and command patterns, and sensitive keywords the model
// has no business seeing.
type PromptValidator struct {
	maxLength   int
	piiKeywords []string
}

func NewPromptValidator(maxLength int, piiKeywords []string) *PromptValidator {
	if maxLength <= 0 {
		maxLength = DefaultMaxPromptLength
	}
	lower := make([]string, 0, len(piiKeywords))
	for _, k := range piiKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return &PromptValidator{maxLength: maxLength, piiKeywords: lower}
}

// ValidationResult contains validation outcome
type ValidationResult struct {
	Valid   bool
	Message string
}

// Validate returns the first reason prompt must not be sent to the model.
func (v *PromptValidator) Validate(prompt string) ValidationResult {
	if n := utf8.RuneCountInString(prompt); n > v.maxLength {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("prompt too long: %d chars (max %d)", n, v.maxLength),
		}
	}

	if strings.TrimSpace(prompt) == "" {
		return ValidationResult{Valid: false, Message: "prompt cannot be empty"}
	}

	for _, rule := range promptRules {
		if rule.re.MatchString(prompt) {
			return ValidationResult{Valid: false, Message: "disallowed content: " + rule.name}
		}
	}

	if kw, found := v.DetectPII(prompt); found {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("prompt asks for sensitive data: %q", kw),
		}
	}

	return ValidationResult{Valid: true, Message: "ok"}
}

// DetectPII returns the first sensitive keyword found in text.
func (v *PromptValidator) DetectPII(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range v.piiKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}
