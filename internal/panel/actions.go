package panel

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Actions accepted by Handle.
const (
	ActionView    = "view"
	ActionSave    = "save"
	ActionRestart = "restart"
	ActionTail    = "tail"
)

// Request is one call from the presentation layer.
type Request struct {
	Action string            `json:"action"`
	Fields map[string]string `json:"fields,omitempty"`
	Lines  string            `json:"lines,omitempty"`
}

// Response carries informational messages and errors as separate ordered lists.
type Response struct {
	Messages []string  `json:"messages"`
	Errors   []string  `json:"errors"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Logs     string    `json:"logs,omitempty"`
}

func (r *Response) merge(other Response) {
	r.Messages = append(r.Messages, other.Messages...)
	r.Errors = append(r.Errors, other.Errors...)
}

// OK reports whether the response carries no errors.
func (r Response) OK() bool { return len(r.Errors) == 0 }

// TailRequest asks for the most recent log lines. Lines is raw caller input.
type TailRequest struct {
	Lines string
}

// Handle runs one action and attaches a snapshot taken after it. Messages and
// Errors are always non-nil so they encode as JSON lists.
func (p *Panel) Handle(ctx context.Context, req Request) Response {
	var resp Response

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "", ActionView:
	case ActionSave:
		resp = p.SaveConfig(ctx, SaveRequest{Fields: req.Fields})
	case ActionRestart:
		resp = p.RestartOnly(ctx)
	case ActionTail:
		resp = p.TailLogs(ctx, TailRequest{Lines: req.Lines})
	default:
		p.log.Warn().Str("action", req.Action).Msg("Unknown action")
		resp.Errors = append(resp.Errors, "Unknown action: "+req.Action)
	}

	if resp.Messages == nil {
		resp.Messages = []string{}
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	snap := p.GetSnapshot(ctx)
	resp.Snapshot = &snap
	return resp
}

// RestartOnly restarts the agent without touching its config.
func (p *Panel) RestartOnly(ctx context.Context) Response {
	return p.restart(ctx)
}

func (p *Panel) restart(ctx context.Context) Response {
	f := p.facilities.Current()
	res := f.Restart(ctx, p.settings.UnitName, p.settings.FallbackScript)
	ok := len(res.Errors) == 0
	p.observer.ObserveRestart(string(f.Kind()), ok)

	ev := p.log.Info()
	if !ok {
		ev = p.log.Warn().Strs("errors", res.Errors)
	}
	ev.Str("facility", string(f.Kind())).Str("unit", p.settings.UnitName).Msg("Restart requested")

	return Response{Messages: res.Messages, Errors: res.Errors}
}

// TailLogs returns the most recent agent log lines. It always yields text.
func (p *Panel) TailLogs(ctx context.Context, req TailRequest) Response {
	n := ParseLineCount(req.Lines, p.settings.TailLines, p.settings.MaxTailLines)
	return Response{Logs: p.facilities.Current().Tail(ctx, p.settings.UnitName, n)}
}

// ParseLineCount coerces raw input to a line count in [0, limit]. Empty or
// non-numeric input gives def; negative gives 0; out-of-range input saturates.
func ParseLineCount(raw string, def, limit int) int {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil {
		var numErr *strconv.NumError
		switch {
		case errors.As(err, &numErr) && numErr.Err == strconv.ErrRange && strings.HasPrefix(raw, "-"):
			n = 0
		case errors.As(err, &numErr) && numErr.Err == strconv.ErrRange:
			n = limit
		default:
			n = def
		}
	}
	if n < 0 {
		n = 0
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}
