package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Apurer/pet-adoption-engine/internal/app/sandboxapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := sandboxapi.Run(ctx); err != nil {
		log.Fatalf("adoption sandbox: %v", err)
	}
}
