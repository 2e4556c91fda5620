// Package telemetry wires OpenTelemetry instrumentation onto the HTTP and
// database layers. Spans are exported by whatever SDK the deployment
// configures through the standard OTEL_* environment variables; with no
// exporter configured the instrumentation is a no-op.
package telemetry

import (
	"github.com/gin-gonic/gin"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config controls which layers get instrumented
type Config struct {
	// Enabled turns request and query tracing on
	Enabled bool
	// ServiceName labels the spans, defaults to the app name
	ServiceName string
}

// GinMiddleware returns the request tracing middleware. One span per
// request, named after the matched route.
func GinMiddleware(cfg Config) gin.HandlerFunc {
	return otelgin.Middleware(cfg.ServiceName)
}

// InstrumentGorm registers query tracing on the database handle. Query
// variables stay out of the spans; SQL text alone is enough to find a
// slow query and parameters may carry tenant data.
func InstrumentGorm(db *gorm.DB, cfg Config, logger *zap.Logger) error {
	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName("postgresql"),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return err
	}
	logger.Info("Database tracing enabled", zap.String("service", cfg.ServiceName))
	return nil
}
