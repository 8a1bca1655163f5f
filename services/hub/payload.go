package hub

import (
	"encoding/json"

	"porthub-go/errcode"
)

// As[T] converts a control or config payload to T. Typed values pass
// through; JSON-shaped payloads ([]byte, string, map[string]any) are decoded.
// A nil payload is treated as the zero value of T. Pointers are not accepted.
func As[T any](v any) (T, errcode.Code) {
	var zero T
	switch p := v.(type) {
	case nil:
		return zero, ""
	case T:
		return p, ""
	case []byte, string, map[string]any:
		var out T
		if err := decodeJSON(p, &out); err != nil {
			return zero, errcode.InvalidPayload
		}
		return out, ""
	default:
		return zero, errcode.InvalidPayload
	}
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
