package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var sqlDangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i);\s*(DROP|DELETE|INSERT|UPDATE|ALTER|CREATE|TRUNCATE|MERGE)\s+`),
	regexp.MustCompile(`(?i);\s*EXEC(UTE)?\b`),
	regexp.MustCompile(`(?i)\bUNION\s+SELECT\b`),
	regexp.MustCompile(`(?i)\bINTO\s+(OUTFILE|DUMPFILE)\b`),
	regexp.MustCompile(`(?i)\bEXPORT\s+DATA\b`),
	regexp.MustCompile(`(?i)\b(SLEEP|BENCHMARK)\s*\(`),
	regexp.MustCompile(`'.*--`),
	regexp.MustCompile(`;\s*--`),
	regexp.MustCompile(`/\*.*?\*/`),
	regexp.MustCompile(`(?i)\b(or|and)\s+'?1'?\s*=\s*'?1'?`),
}

// ErrNotReadOnly is returned for statements that are not SELECT/WITH.
var ErrNotReadOnly = errors.New("only SELECT queries are allowed")

// SQLValidator rejects anything but a single read-only statement.
type SQLValidator struct{}

func NewSQLValidator() *SQLValidator {
	return &SQLValidator{}
}

// Validate returns nil when sql is an acceptable read-only query.
func (v *SQLValidator) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return errors.New("SQL cannot be empty")
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return ErrNotReadOnly
	}

	for _, pattern := range sqlDangerousPatterns {
		if pattern.MatchString(sql) {
			return fmt.Errorf("SQL injection pattern detected: %s", pattern.String())
		}
	}
	return nil
}
