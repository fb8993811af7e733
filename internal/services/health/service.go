package health

import "time"

// Service reports liveness and whether the proxy can reach its provider.
type Service struct {
	configured bool
	model      string
	started    time.Time
}

// Status is the health payload.
type Status struct {
	OK            bool   `json:"ok"`
	Configured    bool   `json:"configured"`
	Model         string `json:"model"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// NewService constructs a new health service.
func NewService(configured bool, model string) *Service {
	return &Service{configured: configured, model: model, started: time.Now()}
}

// Status returns the current health payload. A missing provider credential
// does not make the process unhealthy; it is reported separately.
func (s *Service) Status() Status {
	return Status{
		OK:            true,
		Configured:    s.configured,
		Model:         s.model,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
}
