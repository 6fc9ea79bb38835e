package dispatch

import (
	"fmt"
	"regexp"
	"strings"
)

// tokenRe matches {{ key }} with optional inner whitespace; key may not
// contain whitespace or a closing brace.
var tokenRe = regexp.MustCompile(`\{\{\s*([^}\s]+)\s*\}\}`)

// Render substitutes {{key}} tokens in tmpl with values from payload.
// A nil template passes through unchanged. Tokens whose key is absent from
// payload are left verbatim, so rendering never fails and is idempotent on
// inputs with no resolvable tokens. Output is not re-scanned: a payload value
// that itself looks like a token is not expanded further.
func Render(tmpl *string, payload map[string]any) *string {
	if tmpl == nil {
		return nil
	}
	out := tokenRe.ReplaceAllStringFunc(*tmpl, func(tok string) string {
		key := strings.TrimSpace(tok[2 : len(tok)-2])
		v, ok := payload[key]
		if !ok {
			return tok
		}
		return fmt.Sprint(v)
	})
	return &out
}

// RenderString is Render for callers that already hold a non-nil template.
func RenderString(tmpl string, payload map[string]any) string {
	return *Render(&tmpl, payload)
}
