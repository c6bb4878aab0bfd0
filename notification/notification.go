// Package notification is the end-user-facing notification capability.
package notification

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ViniciusResende/PerguntaUFMG/bridge"
)

// Type is how a notification is presented.
type Type string

const (
	TypeToast Type = "toast"
	TypeModal Type = "modal"
)

// Status is the severity of a notification.
type Status string

const (
	StatusInformational Status = "informational"
	StatusSuccess       Status = "success"
	StatusWarning       Status = "warning"
	StatusError         Status = "error"
)

// Options tune how long a notification stays visible.
type Options struct {
	Duration   time.Duration `json:"duration,omitempty"`
	Persistent bool          `json:"persistent,omitempty"`
}

// Data is the user-visible content of a notification.
type Data struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Options Options `json:"options"`
}

// Notification is a pushed notification as handed to a Notifier.
type Notification struct {
	ID     int64  `json:"id"`
	Key    string `json:"key"`
	Type   Type   `json:"type"`
	Status Status `json:"status"`
	Data   Data   `json:"data"`
}

// Notifier is the notification capability.
type Notifier interface {
	Push(ctx context.Context, n Notification) error
	Dismiss(ctx context.Context, id int64) error
}

// Service assigns ids and forwards to the active Notifier.
type Service struct {
	*bridge.Bridge[Notifier]
	next atomic.Int64
}

// New creates a Service with no implementation set.
func New() *Service {
	return &Service{Bridge: bridge.New[Notifier]("Notifier")}
}

// Push sends a notification and returns its id. The id is allocated even
// when delivery fails so callers can still correlate it.
func (s *Service) Push(ctx context.Context, key string, typ Type, status Status, data Data) (int64, error) {
	if status == "" {
		status = StatusInformational
	}
	if typ == "" {
		typ = TypeToast
	}
	id := s.next.Add(1)
	impl, err := s.Implementation()
	if err != nil {
		return id, err
	}
	return id, impl.Push(ctx, Notification{ID: id, Key: key, Type: typ, Status: status, Data: data})
}

// Toast pushes a toast notification with the given title and content.
func (s *Service) Toast(ctx context.Context, key string, status Status, title, content string) (int64, error) {
	return s.Push(ctx, key, TypeToast, status, Data{Title: title, Content: content})
}

func (s *Service) Dismiss(ctx context.Context, id int64) error {
	impl, err := s.Implementation()
	if err != nil {
		return err
	}
	return impl.Dismiss(ctx, id)
}
