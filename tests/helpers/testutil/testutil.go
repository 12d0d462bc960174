// Package testutil provides a fake remote backend and helpers for kernel
// tests.
package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/rpc"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
)

// MethodFunc answers one remote method. A returned error becomes a
// success:false envelope carrying its message; an *HTTPError becomes a
// non-2xx reply.
type MethodFunc func(params json.RawMessage) (interface{}, error)

// HTTPError makes the fake reply with a status code instead of an envelope
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// User is an account known to the fake auth service
type User struct {
	Username    string
	Password    string
	Role        string
	Permissions []string
}

// Call records one request received by the fake
type Call struct {
	Service   string
	Method    string
	Params    json.RawMessage
	RequestID string
}

// FakeBackend serves the RPC envelope contract with gin. It answers the
// auth, system and apps methods the kernel needs at boot and login; tests
// override or add methods with Handle.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	handlers map[string]MethodFunc // Protected by mu
	users    map[string]User       // Protected by mu
	tokens   map[string]string     // Protected by mu, token -> username
	apps     map[string]interface{} // Protected by mu
	calls    []Call                // Protected by mu
}

// NewFakeBackend starts a fake closed at test cleanup
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeBackend{
		handlers: make(map[string]MethodFunc),
		users:    make(map[string]User),
		tokens:   make(map[string]string),
		apps:     make(map[string]interface{}),
	}
	f.defaults()

	router := gin.New()
	router.POST("/:service", f.serve)
	f.Server = httptest.NewServer(router)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeBackend) serve(c *gin.Context) {
	call := Call{
		Service:   c.Param("service"),
		Method:    c.PostForm("method"),
		Params:    json.RawMessage(c.DefaultPostForm("params", "{}")),
		RequestID: c.PostForm("requestId"),
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	fn, ok := f.handlers[call.Service+"."+call.Method]
	f.mu.Unlock()

	if !ok {
		c.JSON(http.StatusOK, rpc.Envelope{Message: fmt.Sprintf("unknown method %s.%s", call.Service, call.Method)})
		return
	}

	data, err := fn(call.Params)
	if err != nil {
		var herr *HTTPError
		if errors.As(err, &herr) {
			c.JSON(herr.Status, rpc.Envelope{Message: herr.Message})
			return
		}
		c.JSON(http.StatusOK, rpc.Envelope{Message: err.Error()})
		return
	}

	raw, err := sonic.ConfigStd.Marshal(data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, rpc.Envelope{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rpc.Envelope{Success: true, Data: raw})
}

// Handle installs fn for service.method, replacing any default
func (f *FakeBackend) Handle(service, method string, fn MethodFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[service+"."+method] = fn
}

// Reply makes service.method always succeed with data
func (f *FakeBackend) Reply(service, method string, data interface{}) {
	f.Handle(service, method, func(json.RawMessage) (interface{}, error) { return data, nil })
}

// Fail makes service.method always fail remotely with message
func (f *FakeBackend) Fail(service, method, message string) {
	f.Handle(service, method, func(json.RawMessage) (interface{}, error) { return nil, errors.New(message) })
}

// AddUser registers an account with the fake auth service
func (f *FakeBackend) AddUser(u User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Username] = u
}

// AddToken makes token valid for username, as if issued earlier
func (f *FakeBackend) AddToken(token, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = username
}

// PublishApp makes the apps service know manifest under id
func (f *FakeBackend) PublishApp(id string, manifest interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apps[id] = manifest
}

// Calls returns the recorded requests for service.method, or all of them
// when both are empty
func (f *FakeBackend) Calls(service, method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Call
	for _, c := range f.calls {
		if (service == "" || c.Service == service) && (method == "" || c.Method == method) {
			out = append(out, c)
		}
	}
	return out
}

// Config returns a kernel configuration pointed at the fake
func (f *FakeBackend) Config() *config.Config {
	cfg := config.Default()
	cfg.Remote.BaseURL = f.Server.URL
	cfg.Remote.RetryMax = 0
	cfg.Kernel.BootTimeout = 10 * time.Second
	cfg.Kernel.CallTimeout = 2 * time.Second
	cfg.Inspector.Enabled = false
	return cfg
}

// Transport returns a transport with short timeouts and no retry waits
func (f *FakeBackend) Transport() *rpc.Transport {
	return rpc.NewTransport(rpc.TransportOptions{
		Timeout:      2 * time.Second,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
}

type loginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
	ID       string `json:"id"`
	AppID    string `json:"appId"`
}

func (f *FakeBackend) defaults() {
	f.Reply("system", "getSystemInfo", map[string]interface{}{"name": "WebDesk", "version": "test"})
	f.Reply("system", "getLanguagePack", map[string]string{})
	f.Reply("system", "logError", true)
	f.Reply("system", "runSelfTests", map[string]interface{}{
		"results": []map[string]interface{}{{"name": "remote.database", "passed": true}},
	})

	f.Handle("auth", "login", func(raw json.RawMessage) (interface{}, error) {
		var p loginParams
		if err := sonic.ConfigStd.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		u, ok := f.users[p.Username]
		if !ok || u.Password != p.Password {
			return nil, errors.New("Invalid username or password")
		}
		token := "tok-" + u.Username
		f.tokens[token] = u.Username
		return loginReply(u, token), nil
	})
	f.Handle("auth", "validateToken", func(raw json.RawMessage) (interface{}, error) {
		var p loginParams
		if err := sonic.ConfigStd.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		name, ok := f.tokens[p.Token]
		if !ok {
			return nil, errors.New("Invalid or expired token")
		}
		return loginReply(f.users[name], p.Token), nil
	})
	f.Handle("auth", "logout", func(raw json.RawMessage) (interface{}, error) {
		var p loginParams
		if err := sonic.ConfigStd.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.tokens, p.Token)
		return true, nil
	})

	f.Handle("apps", "getAppInfo", func(raw json.RawMessage) (interface{}, error) {
		var p loginParams
		if err := sonic.ConfigStd.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		appID := p.AppID
		if appID == "" {
			appID = p.ID
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		m, ok := f.apps[appID]
		if !ok {
			return nil, errors.New("App not found")
		}
		return m, nil
	})
	f.Handle("apps", "listApps", func(json.RawMessage) (interface{}, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]interface{}, 0, len(f.apps))
		for _, m := range f.apps {
			out = append(out, m)
		}
		return out, nil
	})
}

func loginReply(u User, token string) map[string]interface{} {
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	return map[string]interface{}{
		"user": map[string]interface{}{
			"username":    u.Username,
			"displayName": u.Username,
			"role":        u.Role,
		},
		"permissions": perms,
		"token":       token,
	}
}
