package network

const (
	MsgTypeHeartbeat  = 1
	MsgTypeFilter     = 101 // viewer -> server: {"center": id}, empty id watches every center
	MsgTypeProjection = 301 // server -> viewer: projection view
	MsgTypeAttention  = 302 // server -> viewer: attention list of the control model
	MsgTypeError      = 500
)

// FilterRequest is the payload of MsgTypeFilter.
type FilterRequest struct {
	Center string `json:"center"`
}

// HeartbeatPayload is the payload of MsgTypeHeartbeat.
type HeartbeatPayload struct {
	Time int64 `json:"time"`
}

// ErrorPayload is the payload of MsgTypeError.
type ErrorPayload struct {
	Message string `json:"message"`
}
