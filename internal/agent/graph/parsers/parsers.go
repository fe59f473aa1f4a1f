package parsers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	errx "github.com/tickertalk/server/internal/core/error"
	logx "github.com/tickertalk/server/pkg/logger"
)

// basic safety limits to avoid pathological completions
const (
	maxContentLen = 64 * 1024 // 64KB
	maxErrSnippet = 200       // limit error snippet size
)

var (
	fenceRe    = regexp.MustCompile("(?s)```[A-Za-z]*\\s*(.*?)\\s*```")
	sqlFenceRe = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)\\s*```")
	objectRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// RouteFlags is the classifier's structured answer.
type RouteFlags struct {
	NeedSQL  bool `json:"need_sql"`
	NeedNews bool `json:"need_news"`
}

// ParseRouteFlags decodes {"need_sql": bool, "need_news": bool} from a
// completion, tolerating a fenced code block or prose around the object.
func ParseRouteFlags(content string) (flags RouteFlags, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "route_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("route parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			flags = RouteFlags{}
		}
	}()

	body, err := guard(content)
	if err != nil {
		return RouteFlags{}, err
	}
	if m := fenceRe.FindStringSubmatch(body); m != nil {
		body = m[1]
	}
	obj := objectRe.FindString(body)
	if obj == "" {
		return RouteFlags{}, fmt.Errorf("no json object in completion: %q", snippet(body))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return RouteFlags{}, fmt.Errorf("decode route flags: %w", err)
	}
	if flags.NeedSQL, err = boolField(raw, "need_sql"); err != nil {
		return RouteFlags{}, err
	}
	if flags.NeedNews, err = boolField(raw, "need_news"); err != nil {
		return RouteFlags{}, err
	}
	return flags, nil
}

// ExtractSQL returns the statement inside a ```sql fence, or the trimmed
// completion with stray backticks removed when no fence is present.
func ExtractSQL(content string) (string, error) {
	body, err := guard(content)
	if err != nil {
		return "", err
	}
	if m := sqlFenceRe.FindStringSubmatch(body); m != nil {
		body = m[1]
	} else {
		body = strings.Trim(body, "`")
		if len(body) >= 3 && strings.EqualFold(body[:3], "sql") {
			body = body[3:]
		}
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("empty sql in completion")
	}
	return body, nil
}

func guard(content string) (string, error) {
	if !utf8.ValidString(content) {
		return "", fmt.Errorf("completion invalid utf8")
	}
	if len(content) > maxContentLen {
		return "", fmt.Errorf("completion too large: %d bytes", len(content))
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("empty completion")
	}
	return content, nil
}

// boolField accepts JSON booleans and the strings "true"/"false".
// A missing key reads as false.
func boolField(raw map[string]json.RawMessage, key string) (bool, error) {
	v, ok := raw[key]
	if !ok {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("%s is not a boolean: %s", key, snippet(string(v)))
}

func snippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet] + "..."
}
