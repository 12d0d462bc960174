package filesystem

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/rpc"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/paths"
	"go.uber.org/zap"
)

// Methods of the filesystem service
const (
	MethodReadFile        = "readFile"
	MethodWriteFile       = "writeFile"
	MethodDeleteFile      = "deleteFile"
	MethodListDirectory   = "listDirectory"
	MethodCreateDirectory = "createDirectory"
)

type pathParams struct {
	Path string `json:"path"`
}

type writeParams struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RemoteBackend proxies every operation to the filesystem service
type RemoteBackend struct {
	caller rpc.Caller
	logger *zap.Logger
}

// NewRemoteBackend creates a backend over the filesystem service handle
func NewRemoteBackend(caller rpc.Caller, logger *zap.Logger) *RemoteBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteBackend{caller: caller, logger: logger}
}

// Name implements Backend
func (b *RemoteBackend) Name() string {
	return "remote"
}

// Init creates any missing skeleton directories on the remote store
func (b *RemoteBackend) Init(ctx context.Context, username string) error {
	if err := paths.ValidateName(username); err != nil {
		return errs.Wrap(errs.KindValidation, "filesystem.init", err)
	}
	for _, dir := range paths.Skeleton(username) {
		if paths.IsRoot(dir) {
			continue
		}
		exists, err := b.DirectoryExists(ctx, dir)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := b.CreateDirectory(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile implements Backend
func (b *RemoteBackend) ReadFile(ctx context.Context, p string) (ReadResult, error) {
	var res ReadResult
	data, err := b.caller.Call(ctx, MethodReadFile, pathParams{Path: p})
	if err != nil {
		return ReadResult{}, err
	}
	if rpc.IsNull(data) {
		return ReadResult{}, errs.NotFound("filesystem.readFile", p)
	}
	if err := rpc.Decode("filesystem.readFile", data, &res); err != nil {
		return ReadResult{}, err
	}
	if res.Size == 0 && res.Content != "" {
		res.Size = len(res.Content)
	}
	return res, nil
}

// WriteFile implements Backend
func (b *RemoteBackend) WriteFile(ctx context.Context, p, content string) (WriteResult, error) {
	var res WriteResult
	data, err := b.caller.Call(ctx, MethodWriteFile, writeParams{Path: p, Content: content})
	if err != nil {
		return WriteResult{}, err
	}
	if err := rpc.Decode("filesystem.writeFile", data, &res); err != nil {
		return WriteResult{}, err
	}
	if res.Path == "" {
		res.Path = p
	}
	if res.Size == 0 {
		res.Size = len(content)
	}
	return res, nil
}

// DeleteFile implements Backend
func (b *RemoteBackend) DeleteFile(ctx context.Context, p string) (bool, error) {
	data, err := b.caller.Call(ctx, MethodDeleteFile, pathParams{Path: p})
	if err != nil {
		return false, err
	}
	return decodeBool("filesystem.deleteFile", data)
}

// DeleteDirectory removes an empty remote directory. The service's
// deleteFile handles both kinds, so emptiness is checked here first.
func (b *RemoteBackend) DeleteDirectory(ctx context.Context, p string) (bool, error) {
	entries, err := b.ListDirectory(ctx, p)
	if err != nil {
		return false, err
	}
	if len(entries) > 0 {
		return false, errs.Invariant("filesystem.deleteDirectory", "directory "+p+" is not empty")
	}
	return b.DeleteFile(ctx, p)
}

// ListDirectory implements Backend
func (b *RemoteBackend) ListDirectory(ctx context.Context, p string) ([]Entry, error) {
	var entries []Entry
	data, err := b.caller.Call(ctx, MethodListDirectory, pathParams{Path: p})
	if err != nil {
		return nil, err
	}
	if err := rpc.Decode("filesystem.listDirectory", data, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Path == "" {
			entries[i].Path = paths.Join(p, entries[i].Name)
		}
		if entries[i].Type == KindFile && entries[i].Extension == "" {
			entries[i].Extension = paths.Ext(entries[i].Name)
		}
	}
	SortEntries(entries)
	return entries, nil
}

// CreateDirectory implements Backend
func (b *RemoteBackend) CreateDirectory(ctx context.Context, p string) (bool, error) {
	data, err := b.caller.Call(ctx, MethodCreateDirectory, pathParams{Path: p})
	if err != nil {
		return false, err
	}
	return decodeBool("filesystem.createDirectory", data)
}

// FileExists probes with readFile; the service has no stat method
func (b *RemoteBackend) FileExists(ctx context.Context, p string) (bool, error) {
	_, err := b.ReadFile(ctx, p)
	return probeResult(err)
}

// DirectoryExists probes with listDirectory
func (b *RemoteBackend) DirectoryExists(ctx context.Context, p string) (bool, error) {
	_, err := b.ListDirectory(ctx, p)
	return probeResult(err)
}

// probeResult treats a service-side rejection as absence and anything
// else (transport, timeout) as a failed probe
func probeResult(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrRemote), errors.Is(err, errs.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// decodeBool accepts true/false, null (success), or {"success": bool}
func decodeBool(op string, data json.RawMessage) (bool, error) {
	if rpc.IsNull(data) {
		return true, nil
	}
	var b bool
	if err := rpc.Decode(op, data, &b); err == nil {
		return b, nil
	}
	var obj struct {
		Success *bool `json:"success"`
	}
	if err := rpc.Decode(op, data, &obj); err != nil {
		return false, err
	}
	return obj.Success == nil || *obj.Success, nil
}
