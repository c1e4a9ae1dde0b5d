package supervision

import (
	"context"
	"strings"
	"sync"
)

type call struct {
	name     string
	args     []string
	combined bool
}

func (c call) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

// fakeRunner records calls and answers them through respond.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []call
	started  [][]string
	respond  func(c call) (string, error)
	startErr error
}

func (r *fakeRunner) do(c call) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	if r.respond == nil {
		return "", nil
	}
	return r.respond(c)
}

func (r *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	return r.do(call{name: name, args: args})
}

func (r *fakeRunner) CombinedOutput(_ context.Context, name string, args ...string) (string, error) {
	return r.do(call{name: name, args: args, combined: true})
}

func (r *fakeRunner) StartDetached(name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, append([]string{name}, args...))
	return r.startErr
}

func (r *fakeRunner) commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.String())
	}
	return out
}

type fakeFinder struct {
	running bool
	err     error
	asked   []string
}

func (f *fakeFinder) Running(_ context.Context, name string) (bool, error) {
	f.asked = append(f.asked, name)
	return f.running, f.err
}
