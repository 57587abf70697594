package models

import (
	"errors"
	"fmt"
)

// Well-known JobParameters keys. Callers may send any additional keys; they are
// echoed back untouched in every result.
const (
	KeyFileURL         = "file_url"
	KeyFileDisplayName = "file_display_name"
	KeyUserEmail       = "user_email"
	KeyProgressURL     = "progress_url"
	KeyCallbackURL     = "callback_url"
	KeyFileSizeHint    = "file_size_hint"
	KeyContentTypeHint = "content_type_hint"
	KeyStatusFlag      = "status_flag"
	KeyStatusMsg       = "status_msg"
)

// Sentinel errors for parameter validation.
var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrParameterType    = errors.New("parameter is not a string")
)

// Params is the open job-parameter mapping threaded through one orchestration
// pass. It is never mutated in place: every transformation returns a fresh copy
// with additive fields.
type Params map[string]any

// Clone returns a shallow copy of the parameter mapping.
func (p Params) Clone() Params {
	out := make(Params, len(p)+2)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// RequireString returns the value for key, or a sentinel validation error when
// the key is absent or not a string.
func (p Params) RequireString(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingParameter, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrParameterType, key)
	}
	return s, nil
}

// OptionalString returns the string value for key, or "" when the key is
// absent or holds a non-string value.
func (p Params) OptionalString(key string) string {
	s, _ := p[key].(string)
	return s
}

// ProgressURL returns the stored progress reference, or "" if none.
func (p Params) ProgressURL() string {
	return p.OptionalString(KeyProgressURL)
}

// CallbackURL returns the caller-supplied callback endpoint, or "" if none.
func (p Params) CallbackURL() string {
	return p.OptionalString(KeyCallbackURL)
}

// WithProgressURL returns a copy of the params carrying the progress reference.
func (p Params) WithProgressURL(url string) Params {
	out := p.Clone()
	out[KeyProgressURL] = url
	return out
}

// WithOutcome returns a copy of the params carrying the outcome flag and
// message under the result keys.
func (p Params) WithOutcome(flag Flag, msg string) Params {
	out := p.Clone()
	out[KeyStatusFlag] = int(flag)
	out[KeyStatusMsg] = msg
	return out
}
