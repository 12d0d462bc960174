package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/GriffinCanCode/WebDesk/internal/domain/kernel"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers serves the inspector routes for one kernel
type Handlers struct {
	kernel *kernel.Kernel
	logger *zap.Logger
}

// NewHandlers creates handlers over k
func NewHandlers(k *kernel.Kernel, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{kernel: k, logger: logger}
}

// LaunchRequest is the optional body of POST /apps/:id/launch
type LaunchRequest struct {
	Params map[string]interface{} `json:"params"`
}

// Health reports liveness. It answers 200 while the kernel is running and
// 503 otherwise.
func (h *Handlers) Health(c *gin.Context) {
	status := h.kernel.Status()
	code := http.StatusOK
	if status != kernel.StatusRunning {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"success": code == http.StatusOK,
		"status":  status,
	})
}

// State returns the kernel state with subsystem statistics
func (h *Handlers) State(c *gin.Context) {
	user, _ := h.kernel.Security().CurrentUser()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   h.kernel.State(),
		"user":    user.Username,
		"locale":  h.kernel.Locale(),
		"stats":   h.kernel.Stats(),
		"audit":   h.kernel.Security().Audit(auditLimit),
	})
}

// auditLimit caps the denials reported by State
const auditLimit = 20

// ListApps returns the installed catalog
func (h *Handlers) ListApps(c *gin.Context) {
	apps, err := h.kernel.InstalledApps()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "apps": apps})
}

// Launch starts an application
func (h *Handlers) Launch(c *gin.Context) {
	var req LaunchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, errs.Wrap(errs.KindValidation, "inspector.launch", err))
			return
		}
	}

	proc, err := h.kernel.LaunchApplication(c.Request.Context(), c.Param("id"), req.Params)
	if err != nil {
		h.fail(c, err)
		return
	}
	w, _ := h.kernel.Processes().Window(proc.WindowID)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"process": proc,
		"window":  w,
	})
}

// ListProcesses returns the running processes
func (h *Handlers) ListProcesses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processes": h.kernel.Processes().List(),
	})
}

// Terminate ends a process
func (h *Handlers) Terminate(c *gin.Context) {
	pid, err := strconv.Atoi(c.Param("pid"))
	if err != nil || pid <= 0 {
		h.fail(c, errs.Validation("inspector.terminate", "pid must be a positive integer"))
		return
	}
	if err := h.kernel.Terminate(pid); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListWindows returns the windows in stacking order
func (h *Handlers) ListWindows(c *gin.Context) {
	active, _ := h.kernel.Processes().ActiveWindow()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"windows": h.kernel.Processes().Windows(),
		"active":  active,
	})
}

// Taskbar returns the taskbar entries
func (h *Handlers) Taskbar(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entries": h.kernel.Processes().Taskbar(),
	})
}

// ReadPath lists a directory or returns a file, subject to the logged-in
// user's permissions
func (h *Handlers) ReadPath(c *gin.Context) {
	ctx := c.Request.Context()
	p := c.Param("path")
	if p == "" {
		p = "/"
	}
	fs := h.kernel.FileSystem()

	isDir, err := fs.DirectoryExists(ctx, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	if isDir {
		entries, err := fs.ListDirectory(ctx, p)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "path": p, "entries": entries})
		return
	}

	res, err := fs.ReadFile(ctx, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "path": p, "file": res})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Warn("Inspector request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("kind", kind.String()),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(code, gin.H{
		"success": false,
		"message": errs.Message(err),
		"kind":    kind.String(),
	})
}

// StatusFor maps an error kind to an HTTP status
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvariantViolation):
		return http.StatusConflict
	case errors.Is(err, errs.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, errs.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrTransport), errors.Is(err, errs.ErrRemote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
