package config

import (
	"encoding/json"
	"net/url"
	"os"
	"time"
)

type EnvExpandable string

func (T *EnvExpandable) MarshalText() ([]byte, error) {
	if T == nil {
		return []byte("<nil>"), nil
	}
	return []byte(*T), nil
}

func (T *EnvExpandable) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(*T))
}

func (T *EnvExpandable) UnmarshalJSON(bts []byte) error {
	var s string
	if err := json.Unmarshal(bts, &s); err != nil {
		return err
	}
	*T = EnvExpandable(os.ExpandEnv(s))
	return nil
}

// SafeUrl marshals with credentials and path stripped so configs can be
// logged without leaking secrets.
type SafeUrl string

func (u *SafeUrl) MarshalText() (text []byte, err error) {
	if u == nil {
		return []byte("<nil>"), nil
	}
	urls, err := url.Parse(string(*u))
	if err != nil {
		return nil, err
	}
	return []byte(urls.Scheme + "://" + urls.Host), nil
}

func (u *SafeUrl) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(*u))
}

func (u *SafeUrl) UnmarshalJSON(bts []byte) error {
	var s EnvExpandable
	if err := json.Unmarshal(bts, &s); err != nil {
		return err
	}
	urls, err := url.Parse(string(s))
	if err != nil {
		return err
	}
	*u = SafeUrl(urls.String())
	return nil
}

// Duration accepts both go duration strings and raw nanosecond integers.
type Duration struct {
	time.Duration
}

func (d *Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(bts []byte) error {
	var v any
	if err := json.Unmarshal(bts, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return json.Unmarshal(bts, &d.Duration)
	}
}
