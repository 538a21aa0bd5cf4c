package admission

import (
	"regexp"
	"strings"

	apperrors "yoyaku/pkg/errors"
	"yoyaku/pkg/logger"
)

// Field length bounds for screened input.
const (
	MaxNameLength = 50
	MaxDateLength = 10
	MaxTimeLength = 5
)

var (
	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)('|(\\x27)|(\\x2D\\x2D)|(%27)|(%2D%2D))`),
		regexp.MustCompile(`(?i)\b(union|select|insert|delete|update|drop|create|alter|exec|execute)\b`),
		regexp.MustCompile(`(?i)(\s|^)(or|and)\s`),
	}

	scriptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script.*?>.*?</script>`),
		regexp.MustCompile(`(?i)<iframe[^>]*>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)on\w+\s*=`),
		regexp.MustCompile(`(?i)<[^>]*style\s*=\s*[^>]*>`),
	}

	markupEscaper = strings.NewReplacer(
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
		"/", "&#x2F;",
	)
)

// Screener rejects input matching injection or script threat patterns and
// escapes unsafe markup characters in what passes. Rejections go to the
// security log before the typed error returns.
type Screener struct {
	log *logger.Logger
}

func NewScreener(log *logger.Logger) *Screener {
	return &Screener{log: log}
}

// ScreenFields checks every field and returns its cleaned form. The field
// name of the first offending value is reported in the error details.
type ScreenField struct {
	Name      string
	Value     string
	MaxLength int
}

func (s *Screener) ScreenFields(fingerprint string, fields []ScreenField) (map[string]string, error) {
	clean := make(map[string]string, len(fields))

	for _, f := range fields {
		value, err := s.screen(f)
		if err != nil {
			s.log.Security("malicious_input_detected",
				"field", f.Name,
				"fingerprint", fingerprint,
			)
			return nil, err
		}
		clean[f.Name] = value
	}

	return clean, nil
}

func (s *Screener) screen(f ScreenField) (string, error) {
	value := strings.TrimSpace(f.Value)

	if f.MaxLength > 0 && len(value) > f.MaxLength {
		return "", apperrors.Validation("input exceeds length bound", map[string]any{
			"field": f.Name,
			"max":   f.MaxLength,
		})
	}

	if matchesAny(injectionPatterns, value) || matchesAny(scriptPatterns, value) {
		return "", apperrors.Validation("input rejected by threat screening", map[string]any{
			"field": f.Name,
		})
	}

	return markupEscaper.Replace(value), nil
}

func matchesAny(patterns []*regexp.Regexp, value string) bool {
	for _, p := range patterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}
