package llm

import "regexp"

// ============================================================
// JSON Extraction
// ============================================================

// Модели заворачивают JSON в markdown-ограды и оставляют висячие
// запятые; перед декодированием ответ приводится к чистому JSON.
var (
	jsonFencePattern     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	jsonObjectPattern    = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON вырезает JSON-объект из ответа модели.
// Возвращает пустую строку, если объекта нет.
func ExtractJSON(content string) string {
	var raw string
	if m := jsonFencePattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else {
		raw = jsonObjectPattern.FindString(content)
	}
	if raw == "" {
		return ""
	}
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}
