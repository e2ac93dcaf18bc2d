package config

import "log/slog"

type Config struct {
	HTTP      HTTP       `json:"http"`
	Logging   Logging    `json:"logging,omitempty"`
	Redis     *Redis     `json:"redis,omitempty"`
	Nats      *Nats      `json:"nats,omitempty"`
	Session   *Session   `json:"session,omitempty"`
	Ratelimit *RateLimit `json:"ratelimit,omitempty"`
	Security  *Security  `json:"security,omitempty"`
	Telemetry *Telemetry `json:"telemetry,omitempty"`
	Metrics   *Metrics   `json:"metrics,omitempty"`
	Users     []*User    `json:"users,omitempty"`
}

type Logging struct {
	Format  string     `json:"format,omitempty"`
	Level   slog.Level `json:"level,omitempty"`
	Backend string     `json:"backend,omitempty"`
}

type HTTP struct {
	Bind string `json:"bind"`
}

type Metrics struct {
	Disabled bool   `json:"disabled,omitempty"`
	Bind     string `json:"bind,omitempty"`
}

type Redis struct {
	URI       SafeUrl `json:"uri,omitempty"`
	Namespace string  `json:"namespace,omitempty"`
}

type Nats struct {
	URI SafeUrl `json:"uri,omitempty"`
}

type Session struct {
	Header string   `json:"header,omitempty"`
	TTL    Duration `json:"ttl,omitempty"`

	// procedures matching any of these patterns refuse anonymous callers
	Required []Regexp `json:"required,omitempty"`
}

type RateLimit struct {
	BucketSize         int `json:"bucket_size,omitempty"`
	BucketDrip         int `json:"bucket_drip,omitempty"`
	BucketCycleSeconds int `json:"bucket_cycle_seconds,omitempty"`

	Abuse []*AbuseLimit `json:"abuse,omitempty"`

	// procedures matching any of these patterns skip rate limiting
	Exempt []Regexp `json:"exempt,omitempty"`
}

type AbuseLimit struct {
	Id     string   `json:"id"`
	Total  int      `json:"total"`
	Window Duration `json:"window"`

	// Procedure scopes the budget to a single procedure. Empty means the
	// budget applies to every call.
	Procedure string `json:"procedure,omitempty"`
}

type Security struct {
	TrustedProxies   []string `json:"trusted_proxies,omitempty"`
	TrustedIpHeaders []string `json:"trusted_ip_headers,omitempty"`
	AllowedOrigins   []string `json:"allowed_origins,omitempty"`
}

type Telemetry struct {
	Enabled bool   `json:"enabled,omitempty"`
	Stream  string `json:"stream,omitempty"`
}

// User is a demo account the auth procedures accept.
type User struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Password EnvExpandable `json:"password"`
}
