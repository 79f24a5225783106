package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// Metrics returns the shared Prometheus middleware. The collector is created once per
// process because its metrics register globally.
func Metrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// RegisterMetrics mounts /metrics on app and instruments every later route.
func RegisterMetrics(app *fiber.App, serviceName string) {
	p := Metrics(serviceName)
	p.RegisterAt(app, "/metrics")
	app.Use(p.Middleware)
}
