package logging

import "strings"

// RedactionMark replaces sensitive values before encoding.
const RedactionMark = "[REDACTED]"

// sensitiveKeys is the deny-list; a field whose lowercased name contains any
// entry is masked. Entries overlap so the list survives renames of the more
// specific keys.
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"jwt",
	"key",
	"credential",
	"apikey",
	"sdksecret",
	"sdkkey",
	"meetingpassword",
	"accesstoken",
}

// Redact returns a copy of fields with sensitive values masked, recursing
// through nested maps and slices. The input is never mutated.
func Redact(fields Fields) Fields {
	if fields == nil {
		return nil
	}
	out := make(Fields, len(fields))
	for k, v := range fields {
		if isSensitiveKey(k) {
			out[k] = RedactionMark
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case Fields:
		return Redact(t)
	case map[string]any:
		return map[string]any(Redact(Fields(t)))
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			if isSensitiveKey(k) {
				out[k] = RedactionMark
			} else {
				out[k] = s
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e)
		}
		return out
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
