package services

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/WebDesk/internal/domain/security"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/rpc"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/utils"
)

// Methods of the auth service
const (
	MethodLogin         = "login"
	MethodLogout        = "logout"
	MethodValidateToken = "validateToken"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenParams struct {
	Token string `json:"token"`
}

// Auth is the typed client of the auth service
type Auth struct {
	caller rpc.Caller
}

// NewAuth creates an auth client
func NewAuth(caller rpc.Caller) *Auth {
	return &Auth{caller: caller}
}

// Login exchanges credentials for a user, permission set and token. A
// rejection by the service is AuthenticationRequired.
func (a *Auth) Login(ctx context.Context, username, password string) (*security.LoginResult, error) {
	const op = "auth.login"
	if err := utils.ValidateUsername(username); err != nil {
		return nil, errs.Wrap(errs.KindValidation, op, err)
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, errs.Wrap(errs.KindValidation, op, err)
	}

	data, err := a.caller.Call(ctx, MethodLogin, credentials{Username: username, Password: password})
	if err != nil {
		return nil, asAuthError(op, err)
	}
	return decodeLogin(op, data)
}

// Logout ends the server-side session for token
func (a *Auth) Logout(ctx context.Context, token string) error {
	_, err := a.caller.Call(ctx, MethodLogout, tokenParams{Token: token})
	return err
}

// ValidateToken restores a session from a persisted token. An invalid or
// expired token is AuthenticationRequired.
func (a *Auth) ValidateToken(ctx context.Context, token string) (*security.LoginResult, error) {
	const op = "auth.validateToken"
	if token == "" {
		return nil, errs.New(errs.KindAuthenticationRequired, op, "no session token")
	}

	data, err := a.caller.Call(ctx, MethodValidateToken, tokenParams{Token: token})
	if err != nil {
		return nil, asAuthError(op, err)
	}
	res, err := decodeLogin(op, data)
	if err != nil {
		return nil, err
	}
	if res.Token == "" {
		res.Token = token
	}
	return res, nil
}

func decodeLogin(op string, data []byte) (*security.LoginResult, error) {
	if rpc.IsNull(data) {
		return nil, errs.New(errs.KindAuthenticationRequired, op, "session rejected")
	}
	var res security.LoginResult
	if err := rpc.Decode(op, data, &res); err != nil {
		return nil, err
	}
	if res.User.Username == "" {
		return nil, errs.New(errs.KindAuthenticationRequired, op, "session carries no user")
	}
	if res.Permissions == nil {
		res.Permissions = []string{}
	}
	return &res, nil
}

// asAuthError reclassifies a service rejection, keeping its message
func asAuthError(op string, err error) error {
	if errors.Is(err, errs.ErrRemote) {
		return &errs.Error{Kind: errs.KindAuthenticationRequired, Op: op, Message: errs.Message(err), Err: err}
	}
	return err
}
