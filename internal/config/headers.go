package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseHeaders decodes OPENAI_DEFAULT_HEADERS. A JSON object is tried first;
// otherwise the value is read as "key:value;key:value". Segments without a
// colon are skipped. Returns nil when nothing usable was found.
func ParseHeaders(raw string) map[string]string {
	if raw == "" {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		headers := make(map[string]string, len(obj))
		for k, v := range obj {
			if s, ok := v.(string); ok {
				headers[k] = s
				continue
			}
			headers[k] = fmt.Sprint(v)
		}
		if len(headers) == 0 {
			return nil
		}
		return headers
	}

	headers := make(map[string]string)
	for _, segment := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(segment, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
