// Package telemetry provides OpenTelemetry instrumentation for ctxstore.
//
// # Overview
//
// This package implements distributed tracing and metrics collection using the
// OpenTelemetry Go SDK. It exports telemetry data over OTLP (gRPC or
// http/protobuf) to an OTEL Collector.
//
// # Usage
//
// Create telemetry instance:
//
//	cfg := telemetry.NewDefaultConfig()
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
// Use tracer and meter:
//
//	tracer := tel.Tracer("ctxstore.store")
//	ctx, span := tracer.Start(ctx, "context.write")
//	defer span.End()
//
//	meter := tel.Meter("ctxstore.store")
//	counter, _ := meter.Int64Counter("context.writes")
//	counter.Add(ctx, 1)
//
// # Configuration
//
//	telemetry:
//	  enable: true
//	  endpoint: "localhost:4317"
//	  protocol: "grpc"
//	  service_name: "ctxstore"
//
// # Error Handling
//
// Telemetry failures do not crash the application. If telemetry cannot be
// initialized, the instance degrades gracefully and returns no-op providers.
// The degradation reason is surfaced through Health.
//
// # Testing
//
// Use TestTelemetry for tests:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("test")
//	_, span := tracer.Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
