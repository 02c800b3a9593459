// Package oteladapters implements the lending observability interfaces on top of OpenTelemetry.
//
// Wire them into the engines and the lifecycle manager:
//
//	meter := otel.Meter("library-lending")
//	tracer := otel.Tracer("library-lending")
//	manager, err := lifecycle.NewManager(engine,
//		lifecycle.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		lifecycle.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		lifecycle.WithContextualLogger(oteladapters.NewSlogBridgeLogger("library-lending")),
//	)
package oteladapters
