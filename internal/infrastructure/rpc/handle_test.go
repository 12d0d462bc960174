package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, handler http.HandlerFunc, mutate func(*config.RemoteConfig)) *Registry {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default().Remote
	cfg.BaseURL = srv.URL
	cfg.RetryMax = 0
	if mutate != nil {
		mutate(&cfg)
	}
	transport := NewTransport(TransportOptions{
		Timeout:      2 * time.Second,
		RetryMax:     cfg.RetryMax,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
	return NewRegistry(cfg, nil, WithTransport(transport))
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func TestCallSendsEnvelopeRequest(t *testing.T) {
	var gotPath, gotMethod, gotParams, gotRequestID string
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotMethod = r.PostForm.Get("method")
		gotParams = r.PostForm.Get("params")
		gotRequestID = r.PostForm.Get("requestId")
		writeEnvelope(w, http.StatusOK, Envelope{Success: true, Data: json.RawMessage(`{"version":"1.2"}`)})
	}, nil)

	system, err := reg.Connect("system")
	require.NoError(t, err)

	var info struct {
		Version string `json:"version"`
	}
	err = system.CallInto(context.Background(), "getSystemInfo", map[string]interface{}{"verbose": true}, &info)
	require.NoError(t, err)

	assert.Equal(t, "/system", gotPath)
	assert.Equal(t, "getSystemInfo", gotMethod)
	assert.JSONEq(t, `{"verbose":true}`, gotParams)
	assert.True(t, strings.HasPrefix(gotRequestID, "req_"))
	assert.Equal(t, "1.2", info.Version)
}

func TestCallNilParamsSendsEmptyObject(t *testing.T) {
	var gotParams string
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		gotParams = r.FormValue("params")
		writeEnvelope(w, http.StatusOK, Envelope{Success: true})
	}, nil)

	auth, _ := reg.Connect("auth")
	data, err := auth.Call(context.Background(), "logout", nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", gotParams)
	assert.True(t, IsNull(data))
}

func TestCallRemoteFailure(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, Envelope{Success: false, Message: "Invalid credentials"})
	}, nil)

	auth, _ := reg.Connect("auth")
	_, err := auth.Call(context.Background(), "login", map[string]string{"username": "alice"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrRemote)
	assert.Equal(t, "Invalid credentials", errs.Message(err))
}

func TestCallTransportFailure(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, Envelope{Success: false, Message: "no such service"})
	}, nil)

	apps, _ := reg.Connect("apps")
	_, err := apps.Call(context.Background(), "listApps", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Contains(t, err.Error(), "no such service")
}

func TestCallMalformedEnvelope(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}, nil)

	apps, _ := reg.Connect("apps")
	_, err := apps.Call(context.Background(), "listApps", nil)
	assert.ErrorIs(t, err, errs.ErrTransport)
}

func TestCallRetriesServerErrors(t *testing.T) {
	var hits int32
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, http.StatusOK, Envelope{Success: true, Data: json.RawMessage(`[]`)})
	}, func(cfg *config.RemoteConfig) { cfg.RetryMax = 2 })

	apps, _ := reg.Connect("apps")
	data, err := apps.Call(context.Background(), "listApps", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	var hits int32
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(cfg *config.RemoteConfig) {
		cfg.BreakerFailures = 2
		cfg.BreakerCooldown = time.Hour
	})

	sys, _ := reg.Connect("system")
	for i := 0; i < 2; i++ {
		_, err := sys.Call(context.Background(), "getSystemInfo", nil)
		assert.ErrorIs(t, err, errs.ErrTransport)
	}
	assert.Equal(t, BreakerOpen, sys.Breaker().State())

	_, err := sys.Call(context.Background(), "getSystemInfo", nil)
	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, []string{"system"}, reg.Stats()["open_breakers"])
}

func TestRemoteErrorsDoNotTripBreaker(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, Envelope{Success: false, Message: "nope"})
	}, func(cfg *config.RemoteConfig) { cfg.BreakerFailures = 1 })

	auth, _ := reg.Connect("auth")
	for i := 0; i < 3; i++ {
		_, err := auth.Call(context.Background(), "validateToken", nil)
		assert.ErrorIs(t, err, errs.ErrRemote)
	}
	assert.Equal(t, BreakerClosed, auth.Breaker().State())
}

func TestCallWithTimeout(t *testing.T) {
	release := make(chan struct{})
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, nil)
	defer close(release)

	sys, _ := reg.Connect("system")
	future := sys.CallWithTimeout(context.Background(), 20*time.Millisecond, "runSelfTests", nil)

	_, err := future.Await(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTimeout)
}

func TestCallWithTimeoutCancel(t *testing.T) {
	release := make(chan struct{})
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, nil)
	defer close(release)

	sys, _ := reg.Connect("system")
	future := sys.CallWithTimeout(context.Background(), time.Minute, "runSelfTests", nil)
	future.Cancel()

	_, err := future.Await(context.Background())
	assert.Error(t, err)
	assert.True(t, future.Settled())
}

func TestDisconnectedHandleRejectsCalls(t *testing.T) {
	var hits int32
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeEnvelope(w, http.StatusOK, Envelope{Success: true})
	}, nil)

	users, _ := reg.Connect("users")
	reg.DisconnectAll()

	assert.Equal(t, StatusDisconnected, users.Status())
	_, err := users.Call(context.Background(), "list", nil)
	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))

	// reconnecting reuses the same handle
	again, err := reg.Connect("users")
	require.NoError(t, err)
	assert.Same(t, users, again)
	assert.Equal(t, StatusConnected, users.Status())
}

type recordingObserver struct {
	calls []string
}

func (o *recordingObserver) ObserveCall(service, method string, _ time.Duration, err error) {
	o.calls = append(o.calls, service+"."+method)
}

func TestObserverSeesCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, Envelope{Success: true})
	}))
	defer srv.Close()

	cfg := config.Default().Remote
	cfg.BaseURL = srv.URL
	obs := &recordingObserver{}
	reg := NewRegistry(cfg, nil, WithObserver(obs))

	sys, _ := reg.Connect("system")
	_, err := sys.Call(context.Background(), "logError", map[string]string{"message": "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"system.logError"}, obs.calls)
}

func TestCallPropagatesTrace(t *testing.T) {
	var gotTrace string
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get(tracing.HeaderTraceID)
		writeEnvelope(w, http.StatusOK, Envelope{Success: true})
	}, nil)

	system, err := reg.Connect("system")
	require.NoError(t, err)

	ctx := tracing.WithSpan(context.Background(), "trace-42", "span-1")
	_, err = system.Call(ctx, "getSystemInfo", nil)
	require.NoError(t, err)
	assert.Equal(t, "trace-42", gotTrace)
}
