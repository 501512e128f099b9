package mcp

import (
	"bytes"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode binds tool arguments onto a request struct. Argument names the
// struct does not declare are an error, so a misspelled option is reported
// rather than dropped.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var in T
	args := req.GetArguments()
	if len(args) == 0 {
		return in, nil
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(args); err != nil {
		return in, err
	}
	dec := json.NewDecoder(&buf)
	dec.DisallowUnknownFields()
	err := dec.Decode(&in)
	return in, err
}
