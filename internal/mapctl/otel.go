package mapctl

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/venuemap/explorer/internal/mapctl"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
