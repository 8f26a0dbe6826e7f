package fortune

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	codeBlockRe = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")
	jsonSpanRe  = regexp.MustCompile(`\{[\s\S]*"message"[\s\S]*\}`)
)

// extractor attempts to pull the fortune message out of raw model
// output. Returns "" when its strategy does not apply.
type extractor func(content string) string

// extractors are tried in order; the first non-empty result wins.
var extractors = []extractor{
	extractDirectJSON,
	extractCodeBlock,
	extractJSONSpan,
	extractPlainText,
}

// extractMessage runs the extraction strategies against trimmed model
// output and returns the first non-empty message found.
func extractMessage(content string) (string, error) {
	content = strings.TrimSpace(content)
	for _, extract := range extractors {
		if msg := strings.TrimSpace(extract(content)); msg != "" {
			return msg, nil
		}
	}
	return "", ErrNoMessage
}

// extractDirectJSON parses the whole body as a JSON object and reads
// its message field. A bare JSON string is accepted as the message.
func extractDirectJSON(content string) string {
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var str string
	if err := json.Unmarshal([]byte(content), &str); err == nil {
		return str
	}
	return ""
}

// extractCodeBlock looks for a fenced code block holding a JSON object.
func extractCodeBlock(content string) string {
	m := codeBlockRe.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(m[1]), &obj); err != nil {
		return ""
	}
	return obj.Message
}

// extractJSONSpan locates a brace-delimited span containing a
// "message" key anywhere in the text. Only a span that fails to parse
// is salvaged with quote and brace characters stripped; a span that
// parses to an empty message is not a match.
func extractJSONSpan(content string) string {
	m := jsonSpanRe.FindString(content)
	if m == "" {
		return ""
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(m), &obj); err != nil {
		return strings.NewReplacer(`"`, "", "{", "", "}", "").Replace(content)
	}
	return obj.Message
}

// extractPlainText falls back to the raw text, but never when the
// text carries a JSON span the earlier strategies already rejected.
func extractPlainText(content string) string {
	if jsonSpanRe.MatchString(content) {
		return ""
	}
	return content
}
