package services

import (
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/chachabrian/chefbook-backend/internal/services")
