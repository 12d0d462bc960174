package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrivateRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.ObserveProcessCount(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(a.ProcessesActive))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ProcessesActive))
}

func TestTimer(t *testing.T) {
	m := NewMetrics()
	NewTimer(m, "sandbox", "init").Stop(nil)
	NewTimer(m, "sandbox", "init").Stop(errs.New(errs.KindTimeout, "sandbox.call", "interrupted"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCalls.WithLabelValues("sandbox", "init", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCalls.WithLabelValues("sandbox", "init", errs.KindTimeout.String())))

	assert.NotPanics(t, func() { NewTimer(nil, "sandbox", "init").Stop(nil) })
}

func TestObserversLabelByKind(t *testing.T) {
	m := NewMetrics()

	m.ObserveCall("auth", "login", 10*time.Millisecond, nil)
	m.ObserveCall("auth", "login", 10*time.Millisecond, errs.New(errs.KindRemote, "auth.login", "bad password"))
	m.ObserveFilesystemOp("local", "writeFile", errs.PermissionDenied("fs", "filesystem.write.*"))
	m.RecordLaunch(time.Millisecond, nil)
	m.RecordLaunch(0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCalls.WithLabelValues("auth", "login", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCalls.WithLabelValues("auth", "login", errs.KindRemote.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesystemOps.WithLabelValues("local", "writeFile", errs.KindPermissionDenied.String())))

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.RPCCalls)
	assert.EqualValues(t, 1, snap.RPCErrors)
	assert.EqualValues(t, 2, snap.Launches)
	assert.EqualValues(t, 1, snap.LaunchFailures)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/processes/:pid", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/processes/7", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/processes/:pid", "204")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "webdesk_http_requests_total")
	assert.Contains(t, w.Body.String(), "webdesk_uptime_seconds")
}
