package di

import (
	"glow/internal/scheduler"
	"glow/transport/http"
)

// App bundles the long-running pieces of the service: the HTTP transport and
// the background sweep scheduler, built over one shared dependency graph.
type App struct {
	HTTP      *http.HTTP
	Scheduler *scheduler.Scheduler
}

func NewApp(http *http.HTTP, scheduler *scheduler.Scheduler) *App {
	return &App{
		HTTP:      http,
		Scheduler: scheduler,
	}
}
