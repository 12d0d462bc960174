package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/rpc"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
)

// Methods of the apps service
const (
	MethodListApps          = "listApps"
	MethodGetAppInfo        = "getAppInfo"
	MethodSubmitApp         = "submitApp"
	MethodListSubmissions   = "listSubmissions"
	MethodApproveSubmission = "approveSubmission"
	MethodRejectSubmission  = "rejectSubmission"
)

// SubmissionStatus is the review state of a submission
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is an application awaiting or past review
type Submission struct {
	ID          string           `json:"id"`
	Manifest    types.Manifest   `json:"manifest"`
	Source      string           `json:"source,omitempty"`
	Status      SubmissionStatus `json:"status"`
	Submitter   string           `json:"submitter,omitempty"`
	SubmittedAt time.Time        `json:"submittedAt"`
	Reason      string           `json:"reason,omitempty"`
}

type appParams struct {
	ID string `json:"id"`
}

type submitParams struct {
	Manifest types.Manifest `json:"manifest"`
	Source   string         `json:"source,omitempty"`
}

type listSubmissionsParams struct {
	Status SubmissionStatus `json:"status,omitempty"`
}

type reviewParams struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// Apps is the typed client of the apps service
type Apps struct {
	caller rpc.Caller
}

// NewApps creates an apps client
func NewApps(caller rpc.Caller) *Apps {
	return &Apps{caller: caller}
}

// ListApps returns the catalog
func (a *Apps) ListApps(ctx context.Context) ([]types.Manifest, error) {
	data, err := a.caller.Call(ctx, MethodListApps, nil)
	if err != nil {
		return nil, err
	}
	apps := []types.Manifest{}
	if rpc.IsNull(data) {
		return apps, nil
	}
	if err := rpc.Decode("apps.listApps", data, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// GetAppInfo fetches one manifest. An unknown id, reported as null data or
// as a "not found" rejection, is NotFound; other rejections stay Remote.
func (a *Apps) GetAppInfo(ctx context.Context, appID string) (*types.Manifest, error) {
	const op = "apps.getAppInfo"
	data, err := a.caller.Call(ctx, MethodGetAppInfo, appParams{ID: appID})
	if err != nil {
		if errors.Is(err, errs.ErrRemote) && reportsAbsence(err) {
			return nil, &errs.Error{Kind: errs.KindNotFound, Op: op, Message: "application " + appID + " not found", Err: err}
		}
		return nil, err
	}
	if rpc.IsNull(data) {
		return nil, errs.NotFound(op, "application "+appID)
	}
	var m types.Manifest
	if err := rpc.Decode(op, data, &m); err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = appID
	}
	return &m, nil
}

func reportsAbsence(err error) bool {
	msg := strings.ToLower(errs.Message(err))
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// SubmitApp sends an application for review
func (a *Apps) SubmitApp(ctx context.Context, manifest types.Manifest, source string) (*Submission, error) {
	const op = "apps.submitApp"
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	data, err := a.caller.Call(ctx, MethodSubmitApp, submitParams{Manifest: manifest, Source: source})
	if err != nil {
		return nil, err
	}
	sub := &Submission{Manifest: manifest, Source: source, Status: SubmissionPending}
	if rpc.IsNull(data) {
		return sub, nil
	}
	if err := rpc.Decode(op, data, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubmissions returns submissions, optionally filtered by status
func (a *Apps) ListSubmissions(ctx context.Context, status SubmissionStatus) ([]Submission, error) {
	data, err := a.caller.Call(ctx, MethodListSubmissions, listSubmissionsParams{Status: status})
	if err != nil {
		return nil, err
	}
	subs := []Submission{}
	if rpc.IsNull(data) {
		return subs, nil
	}
	if err := rpc.Decode("apps.listSubmissions", data, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// ApproveSubmission publishes a submission
func (a *Apps) ApproveSubmission(ctx context.Context, submissionID string) error {
	if submissionID == "" {
		return errs.Validation("apps.approveSubmission", "submission id is required")
	}
	_, err := a.caller.Call(ctx, MethodApproveSubmission, reviewParams{ID: submissionID})
	return err
}

// RejectSubmission declines a submission with a reason
func (a *Apps) RejectSubmission(ctx context.Context, submissionID, reason string) error {
	if submissionID == "" {
		return errs.Validation("apps.rejectSubmission", "submission id is required")
	}
	_, err := a.caller.Call(ctx, MethodRejectSubmission, reviewParams{ID: submissionID, Reason: reason})
	return err
}
