package transcribe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrUnsupportedLanguage is returned by ValidateLanguage.
var ErrUnsupportedLanguage = errors.New("unsupported language")

var validate = validator.New()

// autoDetectAlias is accepted by ParseLanguage as an explicit spelling of AutoDetect.
const autoDetectAlias = "auto"

// SupportedLanguages lists the language codes offered by the CLI selector.
// The client forwards any code verbatim; this list only drives input validation.
var SupportedLanguages = []string{"ko", "en", "ja", "zh"}

// DefaultLanguage is the hint the CLI sends when --language is not given.
const DefaultLanguage = "ko"

// Language is the transcription language hint. The zero value is AutoDetect,
// in which case no hint is sent and the service detects the language itself.
type Language struct {
	code string
}

// AutoDetect returns the language value that lets the service detect the language.
func AutoDetect() Language {
	return Language{}
}

// LanguageCode returns a language hint for code. An empty or blank code
// yields AutoDetect.
func LanguageCode(code string) Language {
	return Language{code: strings.TrimSpace(code)}
}

// ParseLanguage converts user input into a Language. "" and "auto" map to AutoDetect.
func ParseLanguage(s string) Language {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == autoDetectAlias {
		return AutoDetect()
	}
	return LanguageCode(s)
}

// IsAutoDetect reports whether no language hint is set.
func (l Language) IsAutoDetect() bool {
	return l.code == ""
}

// Code returns the language code and whether one is set.
func (l Language) Code() (string, bool) {
	return l.code, l.code != ""
}

func (l Language) String() string {
	if l.IsAutoDetect() {
		return autoDetectAlias
	}
	return l.code
}

// ValidateLanguage checks user input against SupportedLanguages. Empty input
// and "auto" are valid and mean AutoDetect.
func ValidateLanguage(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	allowed := append([]string{autoDetectAlias}, SupportedLanguages...)
	if err := validate.Var(s, "oneof="+strings.Join(allowed, " ")); err != nil {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedLanguage, s, strings.Join(allowed, ", "))
	}
	return nil
}
