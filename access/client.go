package access

import (
	"context"
	"fmt"
	"sync"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/per"
	"github.com/ViniciusResende/PerguntaUFMG/pubsub"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// apiHolder owns the domain API of one strategy. It rebuilds the API from
// scratch on every configuration change and closes the previous one.
type apiHolder struct {
	name string
	log  *logging.Service
	dial per.Dialer
	sub  *pubsub.Subscription

	mu     sync.RWMutex
	api    *per.API
	err    error
	closed bool
}

func newAPIHolder(u *utilities.Utilities, dial per.Dialer, name string) *apiHolder {
	h := &apiHolder{name: name, log: u.Logging, dial: dial}
	h.rebuild(context.Background(), u.Configuration())
	h.sub = u.SubscribeFunc(core.EventConfigurationChanged, func(ctx context.Context, ev pubsub.Event) {
		cfg, ok := utilities.ConfigurationFromEvent(ev)
		if !ok {
			return
		}
		h.rebuild(ctx, cfg)
	})
	return h
}

func (h *apiHolder) rebuild(ctx context.Context, cfg utilities.Configuration) {
	var (
		api *per.API
		err error
	)
	if cfg.HasAPIConfig() {
		api, err = per.New(ctx, cfg.APIConfig, h.dial)
		if err != nil {
			h.log.Error("failed to build API", "strategy", h.name, "error", err)
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		if api != nil {
			_ = api.Close()
		}
		return
	}
	old := h.api
	h.api, h.err = api, err
	h.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			h.log.Warn("failed to close previous API", "strategy", h.name, "error", err)
		}
	}
}

// current returns the API built from the latest configuration.
func (h *apiHolder) current() (*per.API, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.api == nil {
		if h.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigurationMissing, h.err)
		}
		return nil, ErrConfigurationMissing
	}
	return h.api, nil
}

func (h *apiHolder) unsupported(verb string) {
	h.log.Warn("there is no valid implementation for this verb", "strategy", h.name, "verb", verb)
}

// Close stops following configuration changes and closes the API.
func (h *apiHolder) Close() error {
	h.sub.Unsubscribe()
	h.mu.Lock()
	api := h.api
	h.api = nil
	h.closed = true
	h.mu.Unlock()
	if api != nil {
		return api.Close()
	}
	return nil
}
