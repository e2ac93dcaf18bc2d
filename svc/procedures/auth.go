package procedures

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"

	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/callmeta"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpc"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/sessions"
)

var (
	errInvalidCredentials = &jsonrpc.JsonError{Code: 401, Message: "Invalid Credentials"}
	errNoSession          = &jsonrpc.JsonError{Code: 401, Message: "Authentication Required"}
)

// Auth owns the login and logout mutations.
type Auth struct {
	log      *slog.Logger
	accounts *Accounts
	sessions *sessions.Store
}

type AuthParams struct {
	fx.In

	Log      *slog.Logger
	Accounts *Accounts
	Sessions *sessions.Store
}

type AuthResult struct {
	fx.Out

	Procedures []trpc.Procedure `group:"procedure,flatten"`
}

func NewAuth(p AuthParams) AuthResult {
	a := &Auth{
		log:      p.Log,
		accounts: p.Accounts,
		sessions: p.Sessions,
	}
	return AuthResult{
		Procedures: []trpc.Procedure{
			{Path: "auth.login", Kind: trpc.KindMutation, Handler: a.login},
			{Path: "auth.logout", Kind: trpc.KindMutation, Handler: a.logout},
		},
	}
}

type LoginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

func (T *Auth) login(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := trpc.DecodeParams[LoginParams](raw)
	if err != nil {
		return nil, err
	}
	if params.Username == "" || params.Password == "" {
		return nil, jsonrpc.NewInvalidParamsError("username and password are required")
	}
	user, ok := T.accounts.Lookup(params.Username)
	if !ok {
		return nil, errInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(params.Password)) != 1 {
		return nil, errInvalidCredentials
	}
	token, err := T.sessions.Create(ctx, user.ID)
	if err != nil {
		T.log.Error("creating session", "user", user.ID, "err", err)
		return nil, jsonrpc.NewInternalError("could not create session")
	}
	return LoginResult{
		Token: token,
		User:  UserInfo{ID: user.ID, Username: user.Username},
	}, nil
}

type LogoutResult struct {
	LoggedOut bool `json:"loggedOut"`
}

func (T *Auth) logout(ctx context.Context, _ json.RawMessage) (any, error) {
	session, err := callmeta.GetSession(ctx)
	if err != nil {
		return nil, errNoSession
	}
	if err := T.sessions.Delete(ctx, session.ID); err != nil {
		T.log.Error("deleting session", "session", session.ID, "err", err)
		return nil, jsonrpc.NewInternalError("could not delete session")
	}
	return LogoutResult{LoggedOut: true}, nil
}
