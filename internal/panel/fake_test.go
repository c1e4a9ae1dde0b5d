package panel

import (
	"context"
	"sync"

	"agentpanel/internal/configstore"
	"agentpanel/internal/supervision"
)

// memStore keeps the document in memory and can be told to fail writes.
type memStore struct {
	mu       sync.Mutex
	doc      configstore.Document
	writeErr error
	writes   int
}

func (s *memStore) Read() configstore.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

func (s *memStore) Write(mutate func(configstore.Document) configstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes++
	s.doc = mutate(s.doc.Clone())
	return nil
}

type fakeFacility struct {
	kind     supervision.Kind
	state    supervision.State
	lastLog  string
	logs     string
	result   supervision.Result
	restarts int
	tailN    []int
}

func (f *fakeFacility) Kind() supervision.Kind { return f.kind }

func (f *fakeFacility) State(context.Context, string) supervision.State { return f.state }

func (f *fakeFacility) LastLogLine(context.Context, string) string { return f.lastLog }

func (f *fakeFacility) Tail(_ context.Context, _ string, lines int) string {
	f.tailN = append(f.tailN, lines)
	return f.logs
}

func (f *fakeFacility) Restart(context.Context, string, string) supervision.Result {
	f.restarts++
	return f.result
}

type staticSource struct{ f supervision.Facility }

func (s staticSource) Current() supervision.Facility { return s.f }

type countingObserver struct {
	restarts map[string]int
	writes   map[bool]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{restarts: map[string]int{}, writes: map[bool]int{}}
}

func (o *countingObserver) ObserveRestart(facility string, ok bool) {
	key := facility + "/fail"
	if ok {
		key = facility + "/ok"
	}
	o.restarts[key]++
}

func (o *countingObserver) ObserveConfigWrite(ok bool) { o.writes[ok]++ }

// scriptRunner answers external calls from a fixed table keyed by program name.
type scriptRunner struct {
	out map[string]string
	err map[string]error
}

func (r *scriptRunner) Output(_ context.Context, name string, _ ...string) (string, error) {
	return r.out[name], r.err[name]
}

func (r *scriptRunner) CombinedOutput(_ context.Context, name string, _ ...string) (string, error) {
	return r.out[name], r.err[name]
}

func (r *scriptRunner) StartDetached(string, ...string) error { return nil }
