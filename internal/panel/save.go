package panel

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"agentpanel/internal/configstore"
)

// Operator-facing texts.
const (
	MsgConfigSaved        = "Configuration saved."
	MsgEnrollmentEmpty    = "Enrollment token is empty; device will not enroll until it is set."
	MsgAPIBaseURLRequired = "API base URL is required."
	MsgAPIBaseURLInvalid  = "API base URL must be an absolute http(s) URL."
)

// FieldError reports one rejected field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string { return e.Message }

// SaveRequest carries edited fields by config key. A key that is absent is
// left as stored.
type SaveRequest struct {
	Fields map[string]string
}

// edits are the validated changes to apply to the stored document.
type edits struct {
	set     map[string]any
	ignored []string
}

// SaveConfig validates the request, merges it into the stored config and,
// only when the write succeeded, restarts the agent.
func (p *Panel) SaveConfig(ctx context.Context, req SaveRequest) Response {
	var resp Response

	ed, fieldErrs := p.validate(req.Fields)
	if len(fieldErrs) > 0 {
		for _, fe := range fieldErrs {
			resp.Errors = append(resp.Errors, fe.Message)
		}
		p.log.Warn().Int("fields", len(fieldErrs)).Msg("Rejected config save")
		return resp
	}
	if len(ed.ignored) > 0 {
		p.log.Info().Strs("keys", ed.ignored).Msg("Ignored fields the panel does not edit")
	}

	var token string
	err := p.store.Write(func(doc configstore.Document) configstore.Document {
		for k, v := range ed.set {
			doc[k] = v
		}
		if _, ok := doc[configstore.KeyAPIBaseURL]; !ok && p.settings.DefaultAPIBaseURL != "" {
			doc[configstore.KeyAPIBaseURL] = p.settings.DefaultAPIBaseURL
		}
		token = doc.String(configstore.KeyEnrollmentToken)
		return doc
	})
	p.observer.ObserveConfigWrite(err == nil)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to save config")
		resp.Errors = append(resp.Errors, writeErrorMessage(err))
		return resp
	}

	p.log.Info().Strs("keys", sortedKeys(ed.set)).Msg("Config saved")
	resp.Messages = append(resp.Messages, MsgConfigSaved)
	if token == "" {
		resp.Messages = append(resp.Messages, MsgEnrollmentEmpty)
	}

	resp.merge(p.restart(ctx))
	return resp
}

func (p *Panel) validate(fields map[string]string) (edits, []FieldError) {
	ed := edits{set: make(map[string]any)}
	var errs []FieldError

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := strings.TrimSpace(fields[key])
		switch key {
		case configstore.KeyAPIBaseURL:
			if value == "" {
				errs = append(errs, FieldError{Field: key, Message: MsgAPIBaseURLRequired})
				continue
			}
			if !validBaseURL(value) {
				errs = append(errs, FieldError{Field: key, Message: MsgAPIBaseURLInvalid})
				continue
			}
			ed.set[key] = value

		case configstore.KeyEnrollmentToken:
			ed.set[key] = value

		case configstore.KeyHeartbeatIntervalSec, configstore.KeyCommandPollIntervalSec:
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				p.log.Debug().Str("key", key).Str("value", value).Msg("Ignoring non-positive interval")
				continue
			}
			ed.set[key] = n

		default:
			ed.ignored = append(ed.ignored, key)
		}
	}
	return ed, errs
}

func validBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func writeErrorMessage(err error) string {
	var we *configstore.WriteError
	if errors.As(err, &we) {
		return we.Message()
	}
	return err.Error()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
