package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/pet-adoption-engine/internal/app/engine"
	"github.com/Apurer/pet-adoption-engine/internal/clients/http/adoption"
	petactivities "github.com/Apurer/pet-adoption-engine/internal/durable/temporal/activities/pets"
	petworkflows "github.com/Apurer/pet-adoption-engine/internal/durable/temporal/workflows/pets"
	platformobservability "github.com/Apurer/pet-adoption-engine/internal/platform/observability"
)

func main() {
	ctx := context.Background()
	const serviceName = "adoption-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := engine.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	// The worker writes statuses as the operator account, not as a device user.
	directory, err := adoption.New(cfg.APIURL,
		adoption.WithTimeout(cfg.APITimeout),
		adoption.WithTokenSource(adoption.StaticToken(cfg.APIToken)),
		adoption.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to build adoption API client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	petActivities := petactivities.NewActivities(directory)

	temporalClient, err := engine.DialTemporal(cfg, instruments, "worker")
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, petworkflows.AdoptedStatusTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(petworkflows.AdoptedStatusWorkflow, workflow.RegisterOptions{Name: petworkflows.AdoptedStatusWorkflowName})
	w.RegisterActivityWithOptions(petActivities.MarkAdopted, activity.RegisterOptions{Name: petactivities.MarkAdoptedActivityName})

	logger.Info("worker listening", slog.String("taskQueue", petworkflows.AdoptedStatusTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
