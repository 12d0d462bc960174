package kernel

import (
	"context"

	"github.com/GriffinCanCode/WebDesk/internal/domain/services"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
)

// ReviewPermission is reported when a non-admin tries a review operation
const ReviewPermission = "apps.review"

// AppStore is the apps service as seen by the current user. Browsing needs
// no login, submitting needs one and reviewing needs the admin role.
type AppStore struct {
	k *Kernel
}

// AppStore returns the store client bound to this kernel's user
func (k *Kernel) AppStore() *AppStore {
	return &AppStore{k: k}
}

// ListApps lists published applications
func (s *AppStore) ListApps(ctx context.Context) ([]types.Manifest, error) {
	return s.k.apps.ListApps(ctx)
}

// GetAppInfo fetches one published manifest
func (s *AppStore) GetAppInfo(ctx context.Context, appID string) (*types.Manifest, error) {
	return s.k.apps.GetAppInfo(ctx, appID)
}

// Install fetches a published manifest and installs it locally
func (s *AppStore) Install(ctx context.Context, appID string) (*types.Manifest, error) {
	m, err := s.k.apps.GetAppInfo(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := s.k.InstallApp(*m); err != nil {
		return nil, err
	}
	return m, nil
}

// SubmitApp sends an application for review
func (s *AppStore) SubmitApp(ctx context.Context, manifest types.Manifest, source string) (*services.Submission, error) {
	if err := s.k.requireUser("appstore.submit"); err != nil {
		return nil, err
	}
	return s.k.apps.SubmitApp(ctx, manifest, source)
}

// ListSubmissions lists submissions with status; "" lists all
func (s *AppStore) ListSubmissions(ctx context.Context, status services.SubmissionStatus) ([]services.Submission, error) {
	if err := s.requireReviewer("appstore.listSubmissions"); err != nil {
		return nil, err
	}
	return s.k.apps.ListSubmissions(ctx, status)
}

// Approve publishes a pending submission
func (s *AppStore) Approve(ctx context.Context, submissionID string) error {
	if err := s.requireReviewer("appstore.approve"); err != nil {
		return err
	}
	return s.k.apps.ApproveSubmission(ctx, submissionID)
}

// Reject declines a pending submission
func (s *AppStore) Reject(ctx context.Context, submissionID, reason string) error {
	if err := s.requireReviewer("appstore.reject"); err != nil {
		return err
	}
	return s.k.apps.RejectSubmission(ctx, submissionID, reason)
}

func (s *AppStore) requireReviewer(op string) error {
	if err := s.k.requireUser(op); err != nil {
		return err
	}
	if !s.k.security.IsAdmin() {
		return errs.PermissionDenied(op, ReviewPermission)
	}
	return nil
}
