package service

import (
	"regexp"
	"strings"
)

var (
	fenceStart = regexp.MustCompile("(?is)^\\s*```(?:markdown|md|text|txt)?[ \\t]*\\n")
	fenceEnd   = regexp.MustCompile("(?is)\\n\\s*```\\s*$")
)

// cleanAnswer quita BOM y un fence ``` que envuelva toda la respuesta, dejando el texto usable.
// Fences internos (bloques de codigo dentro de la respuesta) se respetan.
func cleanAnswer(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// BOM (por si acaso)
	s = strings.TrimPrefix(s, "\uFEFF")

	if fenceStart.MatchString(s) && fenceEnd.MatchString(s) && strings.Count(s, "```") == 2 {
		s = fenceStart.ReplaceAllString(s, "")
		s = fenceEnd.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}
