package models

import "encoding/json"

// JSONValue encodes v for map-based updates of serializer:json columns, which
// gorm passes to the driver without running the serializer.
func JSONValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
