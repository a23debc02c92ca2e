package transport

import "encoding/json"

// Pattern names the command a request targets, as {"cmd": "<name>"}.
type Pattern struct {
	Cmd string `json:"cmd"`
}

// Request is the wire unit written on a channel for every call.
type Request struct {
	ID      string            `json:"id"`
	Pattern Pattern           `json:"pattern"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Fault is the error outcome of a reply.
type Fault struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Reply answers exactly one Request, matched by ID. Exactly one of Response
// and Err is meaningful.
type Reply struct {
	ID       string          `json:"id"`
	Response json.RawMessage `json:"response,omitempty"`
	Err      *Fault          `json:"err,omitempty"`
}

func okReply(id string, response json.RawMessage) Reply {
	return Reply{ID: id, Response: response}
}

func faultReply(id string, f Fault) Reply {
	return Reply{ID: id, Err: &f}
}
