package spec

import (
	"encoding/json"
	"fmt"
	"strings"

	"mgapi/internal/model"
)

// config_spec drives the server's config_manager tool.
//
// Expected CSV columns:
//   - component: component name
//   - key: configuration key
//   - value: configuration value (JSON values are passed structured)
//   - environment: dev, staging, prod, or test
//   - action: set, get, or delete (optional, defaults to set)
//   - description, type: optional

var configEnvironments = []string{"dev", "staging", "prod", "test"}
var configActions = []string{"set", "get", "delete"}

func init() {
	Register(&Definition{
		Name:            "config_spec",
		RequiredColumns: []string{"component", "key", "value", "environment"},
		OptionalColumns: []string{"action", "description", "type"},
		Validate:        validateConfigRow,
		Build:           buildConfigQuery,
	})
}

func validateConfigRow(row model.Row) error {
	def := registry["config_spec"]
	if err := def.checkRequired(row); err != nil {
		return err
	}

	env := strings.ToLower(row.Get("environment"))
	if !contains(configEnvironments, env) {
		return &ValidationError{Field: "environment", Reason: fmt.Sprintf("Invalid environment: %s. Must be one of: %v", env, configEnvironments)}
	}

	action := configAction(row)
	if !contains(configActions, action) {
		return &ValidationError{Field: "action", Reason: fmt.Sprintf("Invalid action: %s. Must be one of: %v", action, configActions)}
	}

	component := row.Get("component")
	if !identLike(component, "-_") {
		return &ValidationError{Field: "component", Reason: fmt.Sprintf("Invalid component name: %s. Use only letters, numbers, underscore, hyphen", component)}
	}

	key := row.Get("key")
	if !identLike(key, "._") {
		return &ValidationError{Field: "key", Reason: fmt.Sprintf("Invalid key name: %s. Use only letters, numbers, underscore, dot", key)}
	}

	return nil
}

func buildConfigQuery(row model.Row) model.RemoteQuery {
	action := configAction(row)

	params := map[string]interface{}{
		"component":   row.Get("component"),
		"environment": row.Get("environment"),
		"key":         row.Get("key"),
	}

	if action == "set" {
		// Complex values may be JSON; pass them structured when they parse.
		value := row.Get("value")
		var parsed interface{}
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			params["value"] = parsed
		} else {
			params["value"] = value
		}
	}

	if desc := row.Get("description"); desc != "" {
		params["description"] = desc
	}
	if typ := row.Get("type"); typ != "" {
		params["type"] = typ
	}

	return model.RemoteQuery{Tool: "config_manager", Action: action, Params: params}
}

func configAction(row model.Row) string {
	action := strings.ToLower(row.Get("action"))
	if action == "" {
		return "set"
	}
	return action
}

// identLike reports whether s is non-empty and alphanumeric once the
// extra characters are stripped.
func identLike(s, extra string) bool {
	stripped := s
	for _, r := range extra {
		stripped = strings.ReplaceAll(stripped, string(r), "")
	}
	if stripped == "" {
		// Values made only of separators ("_", "--") are not identifiers.
		return false
	}
	for _, r := range stripped {
		if !isAlnum(r) {
			return false
		}
	}
	return true
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
