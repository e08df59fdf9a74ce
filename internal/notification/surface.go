package notification

import "errors"

// WebSurface plays alert sounds on connected dashboards and sends system
// notifications as web push.
type WebSurface struct {
	hub  *Hub
	pool *WorkerPool
}

// NewWebSurface combines the dashboard hub with the push pool. A nil pool
// means push is not configured and notification permission is denied.
func NewWebSurface(hub *Hub, pool *WorkerPool) *WebSurface {
	return &WebSurface{hub: hub, pool: pool}
}

func (s *WebSurface) RequestPermission() bool {
	return s.pool != nil
}

func (s *WebSurface) PlayAlert(tableID string) error {
	return s.hub.PlayAlert(tableID)
}

func (s *WebSurface) Notify(title, body string, persistent bool) error {
	if s.pool == nil {
		return errors.New("web push is not configured")
	}
	return s.pool.Dispatch(Message{
		Title:              title,
		Body:               body,
		RequireInteraction: persistent,
		Tag:                title,
	})
}
