package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile("{(.*?)}")

// ResolveParams walks params and replaces every {$.path} token found in string
// values with the value the jsonpath expression selects from data. A string
// made of a single token keeps the type of the selected value.
func ResolveParams(data map[string]any, params map[string]any) map[string]any {
	output := make(map[string]any, len(params))
	resolveParams(data, params, output)
	return output
}

func resolveParams(data map[string]any, params map[string]any, output map[string]any) {
	for k, v := range params {
		switch val := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			output[k] = out
			resolveParams(data, val, out)
		case string:
			output[k] = resolveString(data, val)
		case []any:
			output[k] = resolveList(data, val)
		default:
			output[k] = v
		}
	}
}

func resolveList(data map[string]any, list []any) []any {
	output := make([]any, 0, len(list))
	for _, v := range list {
		switch val := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			resolveParams(data, val, out)
			output = append(output, out)
		case string:
			output = append(output, resolveString(data, val))
		case []any:
			output = append(output, resolveList(data, val))
		default:
			output = append(output, v)
		}
	}
	return output
}

func resolveString(data map[string]any, str string) any {
	tokens := tokenPattern.FindAllString(str, -1)
	if len(tokens) == 0 {
		return str
	}
	if len(tokens) == 1 && tokens[0] == str {
		if value, ok := lookup(data, tokens[0]); ok {
			return value
		}
		return str
	}
	newStr := str
	for _, token := range tokens {
		if value, ok := lookup(data, token); ok {
			newStr = strings.ReplaceAll(newStr, token, fmt.Sprintf("%v", value))
		}
	}
	return newStr
}

func lookup(data map[string]any, token string) (any, bool) {
	tmatch := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
	if !strings.HasPrefix(tmatch, "$") {
		return nil, false
	}
	value, err := jsonpath.JsonPathLookup(data, tmatch)
	if err != nil {
		return nil, false
	}
	return value, true
}

// JsonPath strips the enclosing braces of an expression such as {$.flow.x}.
func JsonPath(expression string) string {
	return strings.TrimSuffix(strings.TrimPrefix(expression, "{"), "}")
}
