package domain

import (
	"strings"
	"time"
)

// Application is a third-party app registered on the platform.
type Application struct {
	ID             string
	Name           string
	APIKey         string
	AllowedOrigins []string
	CreatedAt      time.Time
}

// AllowsOrigin reports whether origin may call the API on behalf of the application.
// An empty list allows nothing; "*" allows everything.
func (a Application) AllowsOrigin(origin string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return false
	}
	for _, allowed := range a.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
