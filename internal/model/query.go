package model

import "encoding/json"

// RemoteQuery is the structured command payload sent to the server.
// Never mutated after construction.
type RemoteQuery struct {
	Tool   string                 `json:"tool"`
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params"`
}

// Encode renders the query as the JSON command string the server expects.
func (q RemoteQuery) Encode() (string, error) {
	b, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// RemoteResult is the server's answer to a dispatched query.
type RemoteResult struct {
	ExitCode int    `json:"exit_code"`
	Message  string `json:"message"`
}
