package spec

import (
	"fmt"
	"regexp"
	"strings"

	"mgapi/internal/model"
)

// user_spec drives the server's user_manager tool.
//
// Expected CSV columns:
//   - username: login name
//   - email: email address
//   - role: admin, user, manager, or viewer
//   - action: create, update, or delete
//   - department, full_name: optional

var (
	emailRe    = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

var userActions = []string{"create", "update", "delete"}
var userRoles = []string{"admin", "user", "manager", "viewer"}

func init() {
	Register(&Definition{
		Name:            "user_spec",
		RequiredColumns: []string{"username", "email", "role", "action"},
		OptionalColumns: []string{"department", "full_name"},
		Validate:        validateUserRow,
		Build:           buildUserQuery,
	})
}

func validateUserRow(row model.Row) error {
	def := registry["user_spec"]
	if err := def.checkRequired(row); err != nil {
		return err
	}

	email := row.Get("email")
	if !emailRe.MatchString(email) {
		return &ValidationError{Field: "email", Reason: fmt.Sprintf("Invalid email format: %s", email)}
	}

	action := strings.ToLower(row.Get("action"))
	if !contains(userActions, action) {
		return &ValidationError{Field: "action", Reason: fmt.Sprintf("Invalid action: %s. Must be one of: %v", action, userActions)}
	}

	role := strings.ToLower(row.Get("role"))
	if !contains(userRoles, role) {
		return &ValidationError{Field: "role", Reason: fmt.Sprintf("Invalid role: %s. Must be one of: %v", role, userRoles)}
	}

	username := row.Get("username")
	if !usernameRe.MatchString(username) {
		return &ValidationError{Field: "username", Reason: fmt.Sprintf("Invalid username format: %s. Use only letters, numbers, underscore, hyphen", username)}
	}

	return nil
}

func buildUserQuery(row model.Row) model.RemoteQuery {
	action := strings.ToLower(row.Get("action"))

	params := map[string]interface{}{
		"username": row.Get("username"),
	}

	switch action {
	case "create":
		params["email"] = row.Get("email")
		params["role"] = row.Get("role")
		params["department"] = row.Get("department")
		params["full_name"] = row.Get("full_name")

	case "update":
		// Only non-empty fields are sent as updates.
		updates := map[string]interface{}{}
		for _, field := range []string{"email", "role", "department", "full_name"} {
			if v := row.Get(field); v != "" {
				updates[field] = v
			}
		}
		if len(updates) > 0 {
			params["updates"] = updates
		}

	case "delete":
		// Delete only needs the username.
	}

	return model.RemoteQuery{Tool: "user_manager", Action: action, Params: params}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
