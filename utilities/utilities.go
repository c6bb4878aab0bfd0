// Package utilities is the process-wide context every component is built
// from: configuration, the shared bus, and the logging, notification and
// security services.
//
// Initialization order: create the Utilities, set the configuration, then
// build accesses and managers. Accesses built before configuration arrives
// fail their calls with a configuration error until it does.
package utilities

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/notification"
	"github.com/ViniciusResende/PerguntaUFMG/pubsub"
	"github.com/ViniciusResende/PerguntaUFMG/security"
)

// Configuration is the process-wide library configuration.
// APIConfig is opaque to the library and handed to the backend dialer.
type Configuration struct {
	APIConfig             map[string]any           `json:"apiConfig,omitempty"`
	NotificationService   notification.ServiceType `json:"notificationService,omitempty"`
	NotificationEndpoints []string                 `json:"notificationEndpoints,omitempty"`
}

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	cp := Configuration{NotificationService: c.NotificationService}
	if c.APIConfig != nil {
		cp.APIConfig = deepCopy(c.APIConfig).(map[string]any)
	}
	if c.NotificationEndpoints != nil {
		cp.NotificationEndpoints = append([]string{}, c.NotificationEndpoints...)
	}
	return cp
}

// HasAPIConfig reports whether a backend configuration is present.
func (c Configuration) HasAPIConfig() bool { return len(c.APIConfig) > 0 }

type options struct {
	logger     logging.Logger
	store      security.Store
	httpClient *http.Client
}

// Option configures Utilities.
type Option func(*options)

// WithLogger sets the initial logging implementation.
func WithLogger(l logging.Logger) Option { return func(o *options) { o.logger = l } }

// WithIdentityStore sets where the authenticated user is persisted.
func WithIdentityStore(s security.Store) Option { return func(o *options) { o.store = s } }

// WithHTTPClient sets the client used by HTTP based notifiers.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// Utilities is the explicitly constructed process context.
type Utilities struct {
	*pubsub.Bus

	Logging      *logging.Service
	Notification *notification.Service
	Security     *security.Security

	httpClient *http.Client

	mu     sync.RWMutex
	config Configuration

	// service and endpoints the current notifier was built from
	notifierMu sync.Mutex
	notifier   *Configuration
}

// New creates the process context with the log notifier selected.
func New(opts ...Option) *Utilities {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	log := logging.New(o.logger)
	u := &Utilities{
		Logging:      log,
		Notification: notification.New(),
		Security:     security.New(o.store, log),
		httpClient:   o.httpClient,
	}
	u.Bus = pubsub.New(pubsub.WithPanicHandler(func(key core.EventKey, r any) {
		log.Error("event listener panicked", "key", key, "panic", r)
	}))
	_ = u.Notification.SetImplementation(notification.NewLog(log))
	return u
}

// Configuration returns a deep copy of the current configuration.
func (u *Utilities) Configuration() Configuration {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.config.Clone()
}

// SetConfiguration merges patch into the current configuration: every field
// set in patch replaces the current value (APIConfig as a whole). It then
// publishes core.EventConfigurationChanged with a snapshot and selects the
// notification implementation named by the result.
func (u *Utilities) SetConfiguration(ctx context.Context, patch Configuration) {
	u.mu.Lock()
	if patch.APIConfig != nil {
		u.config.APIConfig = deepCopy(patch.APIConfig).(map[string]any)
	}
	if patch.NotificationService != "" {
		u.config.NotificationService = patch.NotificationService
	}
	if patch.NotificationEndpoints != nil {
		u.config.NotificationEndpoints = append([]string{}, patch.NotificationEndpoints...)
	}
	snapshot := u.config.Clone()
	u.mu.Unlock()

	u.Publish(ctx, core.EventConfigurationChanged, snapshot)
	u.selectNotifier(snapshot)
}

// selectNotifier swaps the notification implementation only when the
// service or its endpoints changed, so the active notifier keeps its state.
func (u *Utilities) selectNotifier(cfg Configuration) {
	if cfg.NotificationService == "" {
		return
	}
	u.notifierMu.Lock()
	defer u.notifierMu.Unlock()
	if cur := u.notifier; cur != nil && cur.NotificationService == cfg.NotificationService &&
		slices.Equal(cur.NotificationEndpoints, cfg.NotificationEndpoints) {
		return
	}
	factory, ok := notification.Lookup(cfg.NotificationService)
	if !ok {
		u.Logging.Warn("unknown notification service", "service", cfg.NotificationService)
		return
	}
	impl := factory(notification.Deps{
		Bus:        u.Bus,
		Logging:    u.Logging,
		Endpoints:  cfg.NotificationEndpoints,
		HTTPClient: u.httpClient,
	})
	if err := u.Notification.SetImplementation(impl); err != nil {
		u.Logging.Error("failed to set notification implementation", "service", cfg.NotificationService, "error", err)
		return
	}
	u.notifier = &Configuration{
		NotificationService:   cfg.NotificationService,
		NotificationEndpoints: append([]string{}, cfg.NotificationEndpoints...),
	}
}

// ConfigurationFromEvent extracts the snapshot carried by a configuration event.
func ConfigurationFromEvent(ev pubsub.Event) (Configuration, bool) {
	cfg, ok := ev.Payload.(Configuration)
	return cfg, ok
}
