package callmeta

import (
	"context"
	"errors"
)

type ContextKeyCallType string

var ErrNoSession = errors.New("no session attached")
var ErrNoClient = errors.New("no client info attached")
var ErrNoRequestID = errors.New("no request id attached")

const (
	ContextKeySession   ContextKeyCallType = "TinylandSession"
	ContextKeyClient    ContextKeyCallType = "TinylandClient"
	ContextKeyRequestID ContextKeyCallType = "TinylandRequestID"
)

// Session identifies the authenticated caller. Zero-value fields mean the
// corresponding identity is not established.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// Browser is the parsed user-agent family. A nil Browser on Client means the
// agent was never parsed; an empty Name means it could not be recognized.
type Browser struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Client carries transport-level caller metadata. Pointer fields distinguish
// "never derived" (nil) from "derived but empty" (pointer to zero value);
// consumers treat only nil as absent.
type Client struct {
	IPHash     *string  `json:"ipHash,omitempty"`
	DeviceType *string  `json:"deviceType,omitempty"`
	Browser    *Browser `json:"browser,omitempty"`
}

func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, ContextKeySession, session)
}

func WithClient(ctx context.Context, client *Client) context.Context {
	return context.WithValue(ctx, ContextKeyClient, client)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

func GetSession(ctx context.Context) (*Session, error) {
	val := ctx.Value(ContextKeySession)
	valS, ok := val.(*Session)
	if !ok || valS == nil {
		return nil, ErrNoSession
	}
	return valS, nil
}

func GetClient(ctx context.Context) (*Client, error) {
	val := ctx.Value(ContextKeyClient)
	valS, ok := val.(*Client)
	if !ok || valS == nil {
		return nil, ErrNoClient
	}
	return valS, nil
}

func GetRequestID(ctx context.Context) (string, error) {
	val := ctx.Value(ContextKeyRequestID)
	valS, ok := val.(string)
	if !ok || valS == "" {
		return "", ErrNoRequestID
	}
	return valS, nil
}
