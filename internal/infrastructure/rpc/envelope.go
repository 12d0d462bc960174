package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/bytedance/sonic"
)

// Envelope is the response shape of every remote service
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// decodeEnvelope turns an HTTP reply into the envelope's data or a
// classified error
func decodeEnvelope(op string, resp *Response) (json.RawMessage, error) {
	var env Envelope
	decodeErr := sonic.ConfigStd.Unmarshal(resp.Body, &env)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if decodeErr == nil && env.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, env.Message)
		}
		return nil, errs.New(errs.KindTransport, op, msg)
	}

	if decodeErr != nil {
		return nil, errs.Wrap(errs.KindTransport, op, fmt.Errorf("malformed response envelope: %w", decodeErr))
	}

	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return nil, errs.New(errs.KindRemote, op, msg)
	}

	return env.Data, nil
}

// IsNull reports whether data is absent or JSON null
func IsNull(data json.RawMessage) bool {
	s := string(data)
	return s == "" || s == "null"
}
