package datamodels

import "encoding/json"

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Data    any           `json:"data,omitempty"`
	Token   string        `json:"token,omitempty"`
	User    *UserResponse `json:"user,omitempty"`
}

// RawListResponse carries an already-serialized data array so cached task
// lists are written out byte for byte.
type RawListResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}
