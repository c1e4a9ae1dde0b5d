package configstore

import (
	"encoding/json"
	"strconv"
)

// Well-known keys of the agent configuration document.
const (
	KeyDeviceID               = "device_id"
	KeyEnrollmentToken        = "enrollment_token"
	KeyAPIBaseURL             = "api_base_url"
	KeyHeartbeatIntervalSec   = "heartbeat_interval_sec"
	KeyCommandPollIntervalSec = "command_poll_interval_sec"
	KeyLastHeartbeatTS        = "last_heartbeat_ts"
)

// Document is the agent configuration as stored on disk. Keys this package does
// not know about are kept as decoded so they survive a rewrite.
type Document map[string]any

// Clone returns a shallow copy of d. A nil Document clones to an empty one.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// String returns the value at key rendered as text, or "" when absent or null.
func (d Document) String(key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
