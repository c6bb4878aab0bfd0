package notification

import (
	"context"
	"net/http"

	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/pubsub"
)

// ServiceType selects a Notifier implementation by name.
type ServiceType string

const (
	ServiceWeb     ServiceType = "web"
	ServiceWebhook ServiceType = "webhook"
	ServiceLog     ServiceType = "log"
)

// Deps are the collaborators a Notifier may be built from.
type Deps struct {
	Bus        *pubsub.Bus
	Logging    *logging.Service
	Endpoints  []string
	HTTPClient *http.Client
}

// Factory builds a Notifier.
type Factory func(Deps) Notifier

var factories = map[ServiceType]Factory{
	ServiceWeb:     func(d Deps) Notifier { return NewWeb(d.Bus, d.Logging) },
	ServiceWebhook: func(d Deps) Notifier { return NewWebhook(d.Endpoints, WithClient(d.HTTPClient)) },
	ServiceLog:     func(d Deps) Notifier { return NewLog(d.Logging) },
}

// Lookup returns the factory registered for t.
func Lookup(t ServiceType) (Factory, bool) {
	f, ok := factories[t]
	return f, ok
}

// Log writes notifications to the logging service.
type Log struct {
	log *logging.Service
}

// NewLog creates a Notifier that writes notifications to log.
func NewLog(log *logging.Service) *Log { return &Log{log: log} }

func (l *Log) Push(_ context.Context, n Notification) error {
	args := []any{"id", n.ID, "key", n.Key, "type", n.Type, "content", n.Data.Content}
	switch n.Status {
	case StatusError:
		l.log.Error(n.Data.Title, args...)
	case StatusWarning:
		l.log.Warn(n.Data.Title, args...)
	default:
		l.log.Info(n.Data.Title, args...)
	}
	return nil
}

func (l *Log) Dismiss(_ context.Context, id int64) error {
	l.log.Debug("notification dismissed", "id", id)
	return nil
}
