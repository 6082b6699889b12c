package httpapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// Envelope is the common request wrapper every endpoint shares. Method
// specific fields are decoded separately from the same body.
type Envelope struct {
	CharacterID      string `json:"character_id"`
	RequestID        string `json:"request_id"`
	ActorCharacterID string `json:"actor_character_id"`
	AdminOverride    string `json:"admin_override"`
	Healthcheck      bool   `json:"healthcheck"`
}

// legacyNamespace is the default namespace for hashing legacy character
// names into stable v5 UUIDs
var legacyNamespace = uuid.MustParse("8c2f4a1e-0b6d-4f3a-9c7e-5d1b2a8e6f40")

// canonicalID normalizes a character identifier. UUIDs pass through
// lowercased; anything else is treated as a legacy display name and hashed
// into a deterministic v5 UUID when legacy ids are enabled.
func canonicalID(raw string, allowLegacy bool, namespace uuid.UUID) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if parsed, err := uuid.Parse(trimmed); err == nil {
		return parsed.String(), true
	}
	if !allowLegacy {
		return "", false
	}
	return uuid.NewSHA1(namespace, []byte(strings.ToLower(trimmed))).String(), true
}

// writeJSON writes the response body with the given status
func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// successBody flattens a handler response into the {success:true} envelope.
// Struct responses contribute their exported json fields at the top level.
func successBody(result interface{}, requestID string) map[string]interface{} {
	body := map[string]interface{}{
		"success":    true,
		"request_id": requestID,
	}
	if result == nil {
		return body
	}
	if isNilValue(result) {
		return body
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return body
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		// Non-object responses ride under a data key
		var anything interface{}
		if json.Unmarshal(raw, &anything) == nil {
			body["data"] = anything
		}
		return body
	}
	for key, value := range fields {
		if key != "success" && key != "request_id" {
			body[key] = value
		}
	}
	return body
}

// errorBody is the failure envelope
func errorBody(message, requestID string) map[string]interface{} {
	return map[string]interface{}{
		"success":    false,
		"error":      message,
		"request_id": requestID,
	}
}

func isNilValue(v interface{}) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
