package sessions

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/callmeta"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/config"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/prom"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/redi"
)

var ErrNotFound = errors.New("session not found")

// Store keeps sessions in redis under <namespace>:session:<id>. Reads slide
// the ttl forward, so sessions expire from inactivity rather than age.
type Store struct {
	redis *redi.Redis
	ttl   time.Duration
	log   *slog.Logger
}

type Params struct {
	fx.In

	Config *config.Session
	Redis  *redi.Redis
	Log    *slog.Logger
}

type Result struct {
	fx.Out

	Store *Store
}

func New(p Params) Result {
	return Result{
		Store: &Store{
			redis: p.Redis,
			ttl:   p.Config.TTL.Duration,
			log:   p.Log,
		},
	}
}

func (T *Store) key(id string) string {
	return T.redis.Namespace() + ":session:" + id
}

// Create opens a session for userID and returns its id.
func (T *Store) Create(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()
	err := T.redis.C().Set(ctx, T.key(id), userID, T.ttl).Err()
	prom.Sessions.Operations(prom.SessionLabel{Operation: "create", Success: err == nil}).Inc()
	if err != nil {
		return "", err
	}
	return id, nil
}

// Get resolves a session id, refreshing its ttl on hit.
func (T *Store) Get(ctx context.Context, id string) (callmeta.Session, error) {
	userID, err := T.redis.C().GetEx(ctx, T.key(id), T.ttl).Result()
	if errors.Is(err, redis.Nil) {
		prom.Sessions.Operations(prom.SessionLabel{Operation: "get", Success: false}).Inc()
		return callmeta.Session{}, ErrNotFound
	}
	if err != nil {
		prom.Sessions.Operations(prom.SessionLabel{Operation: "get", Success: false}).Inc()
		return callmeta.Session{}, err
	}
	prom.Sessions.Operations(prom.SessionLabel{Operation: "get", Success: true}).Inc()
	return callmeta.Session{ID: id, UserID: userID}, nil
}

// Delete closes a session. Deleting an unknown session is not an error.
func (T *Store) Delete(ctx context.Context, id string) error {
	err := T.redis.C().Del(ctx, T.key(id)).Err()
	prom.Sessions.Operations(prom.SessionLabel{Operation: "delete", Success: err == nil}).Inc()
	return err
}
