// Package panel is the control surface for the monitoring agent: it reads and
// edits the agent's config, reports its health and restarts it through the
// host's supervision facility.
package panel

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"agentpanel/internal/configstore"
	"agentpanel/internal/hostinfo"
	"agentpanel/internal/logger"
	"agentpanel/internal/supervision"
)

// Store persists the agent config document.
type Store interface {
	Read() configstore.Document
	Write(mutate func(configstore.Document) configstore.Document) error
}

// FacilitySource returns the supervision facility for the current request.
type FacilitySource interface {
	Current() supervision.Facility
}

// Observer receives outcome counts. metrics.Recorder satisfies it.
type Observer interface {
	ObserveRestart(facility string, ok bool)
	ObserveConfigWrite(ok bool)
}

// Settings are the host-specific values the panel works with.
type Settings struct {
	UnitName          string
	FallbackScript    string
	DefaultAPIBaseURL string
	VersionPaths      []string
	TailLines         int
	MaxTailLines      int
}

// Panel serves panel requests. Each call is independent and synchronous.
type Panel struct {
	store      Store
	facilities FacilitySource
	install    supervision.Installation
	settings   Settings
	clock      clock.Clock
	observer   Observer
	arch       func() string
	log        zerolog.Logger
}

// Option configures a Panel.
type Option func(*Panel)

// WithClock sets the clock used for snapshot timestamps.
func WithClock(c clock.Clock) Option {
	return func(p *Panel) { p.clock = c }
}

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option {
	return func(p *Panel) { p.observer = o }
}

// WithArch overrides host architecture detection.
func WithArch(fn func() string) Option {
	return func(p *Panel) { p.arch = fn }
}

// New creates a Panel.
func New(store Store, facilities FacilitySource, install supervision.Installation, settings Settings, opts ...Option) *Panel {
	p := &Panel{
		store:      store,
		facilities: facilities,
		install:    install,
		settings:   settings,
		clock:      clock.New(),
		observer:   nopObserver{},
		arch:       hostinfo.Arch,
		log:        logger.WithComponent("panel"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot is a read-only view of the agent's config and health.
type Snapshot struct {
	Config        configstore.Document `json:"config"`
	Facility      supervision.Kind     `json:"facility"`
	Status        supervision.State    `json:"status"`
	LastLogLine   string               `json:"last_log_line"`
	Installed     bool                 `json:"installed"`
	Running       bool                 `json:"running"`
	AgentVersion  string               `json:"agent_version"`
	Arch          string               `json:"arch"`
	DeviceID      string               `json:"device_id"`
	Enrolled      bool                 `json:"enrolled"`
	LastHeartbeat string               `json:"last_heartbeat,omitempty"`
	HeartbeatAge  time.Duration        `json:"heartbeat_age_ns,omitempty"`
	CheckedAt     time.Time            `json:"checked_at"`
}

// GetSnapshot reads the config and queries the facility. It changes nothing.
func (p *Panel) GetSnapshot(ctx context.Context) Snapshot {
	f := p.facilities.Current()
	doc := p.store.Read()
	status := supervision.Status(ctx, f, p.settings.UnitName)
	now := p.clock.Now()

	snap := Snapshot{
		Config:        doc,
		Facility:      f.Kind(),
		Status:        status.State,
		LastLogLine:   status.LastLogLine,
		Installed:     p.install.IsInstalled(p.settings.UnitName, p.settings.FallbackScript),
		Running:       status.State.Running(),
		AgentVersion:  hostinfo.AgentVersion(p.settings.VersionPaths),
		Arch:          p.arch(),
		DeviceID:      doc.String(configstore.KeyDeviceID),
		LastHeartbeat: doc.String(configstore.KeyLastHeartbeatTS),
		CheckedAt:     now,
	}
	snap.Enrolled = snap.DeviceID != ""
	snap.HeartbeatAge = heartbeatAge(snap.LastHeartbeat, now)
	return snap
}

func heartbeatAge(ts string, now time.Time) time.Duration {
	if ts == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return 0
	}
	if age := now.Sub(t); age > 0 {
		return age
	}
	return 0
}

type nopObserver struct{}

func (nopObserver) ObserveRestart(string, bool) {}
func (nopObserver) ObserveConfigWrite(bool)     {}
