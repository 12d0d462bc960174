package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/id"
	"github.com/GriffinCanCode/WebDesk/internal/shared/task"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Status of a service handle
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Observer receives a sample for every completed call
type Observer interface {
	ObserveCall(service, method string, duration time.Duration, err error)
}

// Caller is the client side of one remote service
type Caller interface {
	Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
}

// ServiceHandle is the typed client for one named remote service
type ServiceHandle struct {
	name      string
	endpoint  string
	transport *Transport
	breaker   *Breaker
	observer  Observer
	logger    *zap.Logger

	mu     sync.RWMutex
	status Status
}

// Name returns the service name
func (h *ServiceHandle) Name() string {
	return h.name
}

// Endpoint returns the URL calls are posted to
func (h *ServiceHandle) Endpoint() string {
	return h.endpoint
}

// Status returns the connection status
func (h *ServiceHandle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Breaker returns the handle's circuit breaker
func (h *ServiceHandle) Breaker() *Breaker {
	return h.breaker
}

func (h *ServiceHandle) setStatus(s Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = s
}

// Call invokes method with params and returns the envelope's data.
// params may be nil, a map, a struct, or pre-encoded json.RawMessage.
func (h *ServiceHandle) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	op := h.name + "." + method
	if h.Status() != StatusConnected {
		return nil, errs.Newf(errs.KindTransport, op, "service %s is disconnected", h.name)
	}

	encoded, err := encodeParams(params)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, op, err)
	}

	requestID := id.NewRequestID()
	start := time.Now()

	var data json.RawMessage
	err = h.breaker.Do(func() error {
		resp, err := h.transport.PostForm(ctx, h.endpoint, map[string]string{
			"method":    method,
			"params":    encoded,
			"requestId": requestID.String(),
		})
		if err != nil {
			return err
		}
		data, err = decodeEnvelope(op, resp)
		return err
	}, countsAgainstBreaker)

	duration := time.Since(start)
	if h.observer != nil {
		h.observer.ObserveCall(h.name, method, duration, err)
	}

	if err != nil {
		h.logger.Debug("Call failed",
			zap.String("method", method),
			zap.String("request_id", requestID.String()),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	h.logger.Debug("Call completed",
		zap.String("method", method),
		zap.String("request_id", requestID.String()),
		zap.Duration("duration", duration))
	return data, nil
}

// CallInto invokes method and decodes the envelope's data into out.
// A nil out discards the data.
func (h *ServiceHandle) CallInto(ctx context.Context, method string, params, out interface{}) error {
	data, err := h.Call(ctx, method, params)
	if err != nil {
		return err
	}
	return Decode(h.name+"."+method, data, out)
}

// CallWithTimeout starts the call in the background. The future settles with
// a TimeoutError once timeout elapses and can be cancelled explicitly.
func (h *ServiceHandle) CallWithTimeout(ctx context.Context, timeout time.Duration, method string, params interface{}) *task.Future[json.RawMessage] {
	return task.Go(ctx, timeout, func(ctx context.Context) (json.RawMessage, error) {
		return h.Call(ctx, method, params)
	})
}

// Decode unmarshals envelope data into out
func Decode(op string, data json.RawMessage, out interface{}) error {
	if out == nil || IsNull(data) {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
		return errs.Wrap(errs.KindValidation, op, err)
	}
	return nil
}

func encodeParams(params interface{}) (string, error) {
	switch p := params.(type) {
	case nil:
		return "{}", nil
	case json.RawMessage:
		if len(p) == 0 {
			return "{}", nil
		}
		return string(p), nil
	}
	data, err := sonic.ConfigStd.Marshal(params)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// countsAgainstBreaker reports whether err reflects service health. Remote
// application errors (success:false) mean the service answered.
func countsAgainstBreaker(err error) bool {
	var e *errs.Error
	if !errors.As(err, &e) {
		return true
	}
	switch e.Kind {
	case errs.KindTransport, errs.KindTimeout:
		return true
	}
	return false
}
