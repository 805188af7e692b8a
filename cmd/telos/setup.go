package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/telos-vcs/telos"
)

// cliSessionID identifies every agent_operation this process records against
// itself, so one invocation's actions share a session_id.
var cliSessionID = uuid.NewString()

// recordSelfOperation writes an agent_operation record attributing id to
// this CLI invocation. Failures are logged to stderr and otherwise ignored:
// self-attribution is a convenience, never a precondition for the command
// that triggered it.
func recordSelfOperation(ctx context.Context, repo *telos.Repository, summary string, touched telos.ContentID) {
	_, err := repo.CreateAgentOperation(ctx, telos.AgentOperation{
		AgentID:     "telos-cli",
		SessionID:   cliSessionID,
		Timestamp:   time.Now().UTC(),
		Operation:   telos.OperationType{Kind: telos.OpGenerate},
		Result:      telos.OperationResult{Kind: telos.ResultSuccess},
		Summary:     summary,
		ContextRefs: []telos.ContentID{touched},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record self-operation: %v\n", err)
	}
}

// setupTracing wires stdout OTel exporters when --trace is set, returning a
// shutdown func to flush and detach them. A no-op shutdown is returned when
// tracing is off.
func setupTracing(ctx context.Context) (func(), error) {
	if !cfg.Trace {
		return func() {}, nil
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))
	otel.SetMeterProvider(mp)

	return func() {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
	}, nil
}

// openRepository discovers the .telos tree starting from the current
// working directory.
func openRepository() (*telos.Repository, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	return telos.Discover(wd, nil)
}
