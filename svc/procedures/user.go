package procedures

import (
	"context"
	"encoding/json"
	"log/slog"

	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/callmeta"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpc"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/sessions"
)

var errAccountGone = &jsonrpc.JsonError{Code: 401, Message: "Account No Longer Exists"}

type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Users owns the procedures acting on the calling user. All of them need a
// session, the caller is whoever the session says.
type Users struct {
	log      *slog.Logger
	accounts *Accounts
	sessions *sessions.Store
}

type UsersParams struct {
	fx.In

	Log      *slog.Logger
	Accounts *Accounts
	Sessions *sessions.Store
}

type UsersResult struct {
	fx.Out

	Procedures []trpc.Procedure `group:"procedure,flatten"`
}

func NewUsers(p UsersParams) UsersResult {
	u := &Users{
		log:      p.Log,
		accounts: p.Accounts,
		sessions: p.Sessions,
	}
	return UsersResult{
		Procedures: []trpc.Procedure{
			{Path: "user.me", Kind: trpc.KindQuery, Handler: u.me},
			{Path: "user.delete", Kind: trpc.KindMutation, Handler: u.delete},
		},
	}
}

func (T *Users) me(ctx context.Context, _ json.RawMessage) (any, error) {
	session, err := callmeta.GetSession(ctx)
	if err != nil {
		return nil, errNoSession
	}
	user, ok := T.accounts.LookupID(session.UserID)
	if !ok {
		return nil, errAccountGone
	}
	return UserInfo{ID: user.ID, Username: user.Username}, nil
}

type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

func (T *Users) delete(ctx context.Context, _ json.RawMessage) (any, error) {
	session, err := callmeta.GetSession(ctx)
	if err != nil {
		return nil, errNoSession
	}
	if !T.accounts.Delete(session.UserID) {
		return nil, errAccountGone
	}
	// the account is gone, its session has nothing left to authenticate
	if err := T.sessions.Delete(ctx, session.ID); err != nil {
		T.log.Error("deleting session", "session", session.ID, "err", err)
	}
	return DeleteResult{Deleted: true}, nil
}
