package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/GriffinCanCode/WebDesk/internal/api/middleware"
	"github.com/GriffinCanCode/WebDesk/internal/domain/kernel"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/tests/helpers/testutil"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, login bool) (*gin.Engine, *kernel.Kernel) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := testutil.NewFakeBackend(t)
	fake.AddUser(testutil.User{
		Username:    "alice",
		Password:    "wonderland",
		Role:        "user",
		Permissions: []string{"app.launch.*", "filesystem.*"},
	})
	k, err := kernel.New(kernel.Options{
		Config:    fake.Config(),
		Store:     storage.NewMemory(),
		Transport: fake.Transport(),
	})
	require.NoError(t, err)
	require.NoError(t, k.Boot(context.Background()))
	if login {
		_, err = k.Login(context.Background(), "alice", "wonderland")
		require.NoError(t, err)
	}
	return NewRouter(k, RouterOptions{CORS: middleware.DefaultCORSConfig()}), k
}

func do(t *testing.T, router *gin.Engine, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, sonic.ConfigStd.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestHealthAndState(t *testing.T) {
	router, _ := newTestRouter(t, true)

	code, body := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "running", body["status"])

	code, body = do(t, router, http.MethodGet, "/state", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["user"])
	state := body["state"].(map[string]interface{})
	assert.Equal(t, "running", state["status"])
}

func TestStateReportsDenials(t *testing.T) {
	router, k := newTestRouter(t, true)
	assert.ErrorIs(t, k.Security().Require("system.reboot"), errs.ErrPermissionDenied)

	code, body := do(t, router, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, code)
	audit := body["audit"].([]interface{})
	require.NotEmpty(t, audit)
	entry := audit[0].(map[string]interface{})
	assert.Equal(t, "system.reboot", entry["permission"])
	assert.Equal(t, "alice", entry["username"])
}

func TestLaunchListAndTerminate(t *testing.T) {
	router, k := newTestRouter(t, true)

	code, body := do(t, router, http.MethodPost, "/apps/about/launch", "")
	require.Equal(t, http.StatusCreated, code)
	proc := body["process"].(map[string]interface{})
	pid := int(proc["pid"].(float64))
	assert.Equal(t, "about", proc["appId"])

	code, body = do(t, router, http.MethodGet, "/processes", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["processes"], 1)

	code, body = do(t, router, http.MethodGet, "/windows", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["windows"], 1)

	code, body = do(t, router, http.MethodGet, "/taskbar", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["entries"], 1)

	code, _ = do(t, router, http.MethodDelete, "/processes/"+strconv.Itoa(pid), "")
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, 0, k.Processes().Count())

	code, body = do(t, router, http.MethodDelete, "/processes/"+strconv.Itoa(pid), "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NotFound", body["kind"])

	code, _ = do(t, router, http.MethodDelete, "/processes/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLaunchWithParams(t *testing.T) {
	router, k := newTestRouter(t, true)
	require.NoError(t, k.WriteFile(context.Background(), "/users/alice/Documents/a.txt", "hello"))

	code, body := do(t, router, http.MethodPost, "/apps/notepad/launch", `{"params":{"path":"/users/alice/Documents/a.txt"}}`)
	require.Equal(t, http.StatusCreated, code)
	w := body["window"].(map[string]interface{})
	assert.Equal(t, "a.txt", w["title"])

	code, _ = do(t, router, http.MethodPost, "/apps/notepad/launch", `{"params":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLaunchUnknownApp(t *testing.T) {
	router, _ := newTestRouter(t, true)

	code, body := do(t, router, http.MethodPost, "/apps/doesNotExist/launch", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "NotFound", body["kind"])
}

func TestLaunchWithoutLogin(t *testing.T) {
	router, _ := newTestRouter(t, false)

	code, _ := do(t, router, http.MethodPost, "/apps/about/launch", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestReadPath(t *testing.T) {
	router, _ := newTestRouter(t, true)

	code, body := do(t, router, http.MethodGet, "/fs/users/alice", "")
	require.Equal(t, http.StatusOK, code)
	var names []string
	for _, e := range body["entries"].([]interface{}) {
		names = append(names, e.(map[string]interface{})["name"].(string))
	}
	assert.Equal(t, []string{"Desktop", "Documents"}, names)

	code, body = do(t, router, http.MethodGet, "/fs/users/alice/Desktop/Welcome.txt", "")
	require.Equal(t, http.StatusOK, code)
	file := body["file"].(map[string]interface{})
	assert.NotEmpty(t, file["content"])

	code, _ = do(t, router, http.MethodGet, "/fs/users/alice/missing.txt", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReadPathWithoutLogin(t *testing.T) {
	router, _ := newTestRouter(t, false)

	code, body := do(t, router, http.MethodGet, "/fs/", "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "PermissionDenied", body["kind"])
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, true)
	do(t, router, http.MethodGet, "/health", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "webdesk_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind errs.Kind
		want int
	}{
		{errs.KindValidation, http.StatusBadRequest},
		{errs.KindAuthenticationRequired, http.StatusUnauthorized},
		{errs.KindPermissionDenied, http.StatusForbidden},
		{errs.KindNotFound, http.StatusNotFound},
		{errs.KindInvariantViolation, http.StatusConflict},
		{errs.KindTimeout, http.StatusGatewayTimeout},
		{errs.KindBackendUnavailable, http.StatusServiceUnavailable},
		{errs.KindTransport, http.StatusBadGateway},
		{errs.KindRemote, http.StatusBadGateway},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(errs.New(tt.kind, "op", "boom")), tt.kind.String())
	}
	assert.Equal(t, http.StatusInternalServerError, StatusFor(assert.AnError))
}
