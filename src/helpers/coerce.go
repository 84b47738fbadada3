package helpers

// -----------------------------------------------------------------------------
// Defensive extraction from decoded JSON maps.
// Missing or wrong-typed fields coerce to the default instead of panicking;
// nothing in a message-delivery path is allowed to throw.
// -----------------------------------------------------------------------------

func SafeFloat(data map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		default:
			return defaultValue
		}
	}
	return defaultValue
}

// -----------------------------------------------------------------------------

func SafeInt64(data map[string]interface{}, key string, defaultValue int64) int64 {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case float64:
			return int64(v)
		case int:
			return int64(v)
		case int64:
			return v
		default:
			return defaultValue
		}
	}
	return defaultValue
}

// -----------------------------------------------------------------------------

func SafeString(data map[string]interface{}, key string, defaultValue string) string {
	if val, ok := data[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultValue
}

// -----------------------------------------------------------------------------

// HasKey reports whether a decoded map carries the key at all, regardless of
// type. Used to tell "field absent" apart from "field zero" in sparse deltas.
func HasKey(data map[string]interface{}, key string) bool {
	_, ok := data[key]
	return ok
}
