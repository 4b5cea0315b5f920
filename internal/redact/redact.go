// Package redact strips credentials, tokens and other sensitive fragments
// from error text before it is logged.
package redact

import "regexp"

// Placeholders substituted for redacted fragments.
const (
	Credential = "[REDACTED_CREDENTIAL]"
	Token      = "[REDACTED_TOKEN]"
	Email      = "[REDACTED_EMAIL]"
	SQL        = "[REDACTED_SQL]"
	Path       = "[REDACTED_PATH]"
	Host       = "[REDACTED_HOST]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// Rules run in order; earlier rules see the unmodified text. Connection
// URLs go first so their hosts are not half-matched by the host rule.
var rules = []rule{
	{regexp.MustCompile(`(?i)\b(postgres(?:ql)?|rediss?)://[^\s@/]+@`), "$1://" + Credential + "@"},
	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), Token},
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{8,}`), "Bearer " + Token},
	{regexp.MustCompile(`(?i)\b(password|passwd|secret|jwt_secret)(\s*[=:]\s*)['"]?[^\s'"&,]+`), "$1$2" + Credential},
	{regexp.MustCompile(`\$2[aby]\$\d{2}\$[./A-Za-z0-9]{53}`), Credential},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), Email},
	{regexp.MustCompile(`(?i)\b(?:SELECT|INSERT|UPDATE|DELETE)\b[^;]*?\b(?:FROM|INTO|SET)\b[^;:]*`), SQL},
	{regexp.MustCompile(`(?:/[\w.-]+){2,}`), Path},
	{regexp.MustCompile(`\b(?:[A-Za-z0-9-]+\.)+[A-Za-z]{2,}:\d{2,5}\b`), Host},
}

// String returns input with every sensitive fragment replaced.
func String(input string) string {
	for _, r := range rules {
		if input == "" {
			break
		}
		input = r.pattern.ReplaceAllString(input, r.placeholder)
	}
	return input
}

// Error redacts err.Error(). A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
