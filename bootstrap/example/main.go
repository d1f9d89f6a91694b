// Example demonstrating the signalgrid bootstrap system
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/signalgrid/signalgrid/bootstrap"
	"github.com/signalgrid/signalgrid/config"
	"github.com/signalgrid/signalgrid/core"
)

// AuditService demonstrates a custom service implementation that
// rides alongside the built-in ones.
type AuditService struct {
	app    *bootstrap.Application
	events int
}

func (s *AuditService) Name() string {
	return "audit"
}

func (s *AuditService) Start(ctx context.Context) error {
	fmt.Println("Starting audit service...")
	// The signal system is already up: audit depends on it
	if s.app.System() == nil {
		return fmt.Errorf("audit needs a running signal system")
	}
	fmt.Println("audit service started successfully")
	return nil
}

func (s *AuditService) Stop(ctx context.Context) error {
	fmt.Printf("Stopping audit service after %d events...\n", s.events)
	return nil
}

func (s *AuditService) Health(ctx context.Context) (bootstrap.HealthStatus, error) {
	return bootstrap.HealthStatus{
		State:   bootstrap.HealthHealthy,
		Message: "audit service is healthy",
		Data: map[string]interface{}{
			"events": s.events,
		},
	}, nil
}

// consolePanel is a plain Go actor receiving signals in the demo.
type consolePanel struct {
	name string
}

func (p *consolePanel) Valid() bool       { return true }
func (p *consolePanel) Owner() core.Owner { return "demo" }

func main() {
	fmt.Println("=== Signalgrid Bootstrap Demo ===")

	cfg := config.DefaultConfig()
	cfg.App.Name = "bootstrap-demo"

	app := bootstrap.New(cfg)

	audit := &AuditService{app: app}
	if err := app.RegisterService("audit", audit, "signal-system"); err != nil {
		log.Fatalf("Failed to register audit service: %v", err)
	}

	fmt.Printf("Application configured with %d services\n", len(app.Lifecycle().Services()))

	// Set up lifecycle event listener
	app.Lifecycle().AddListener(func(event bootstrap.LifecycleEvent) {
		fmt.Printf("Event: %s", event.Type)
		if event.Service != "" {
			fmt.Printf(" (service: %s)", event.Service)
		}
		fmt.Println()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println("\n=== Service Lifecycle Demo ===")
	fmt.Println("Starting all services...")
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start services: %v", err)
	}

	// Demonstrate dependency injection
	fmt.Println("\n=== Dependency Injection Demo ===")
	var system *core.System
	if err := app.Container().ResolveAs("signal-system", &system); err != nil {
		log.Fatalf("Failed to resolve signal system: %v", err)
	}
	fmt.Printf("Resolved signal system: %T\n", system)

	// Route a few signals through the running system
	fmt.Println("\n=== Signal Routing Demo ===")
	panel := &consolePanel{name: "panel"}
	err := system.Listen("ANNOUNCE", panel, core.NewHandlerFunc(func(sig core.Signal, data core.Value, sender core.Actor) error {
		text, _ := data.AsString()
		fmt.Printf("panel received %s: %s\n", sig, text)
		audit.events++
		return nil
	}))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	if err := system.Join("ops:public", panel); err != nil {
		log.Fatalf("Failed to join group: %v", err)
	}

	failed, err := system.Send(core.GroupTarget("ops:public"), "ANNOUNCE", core.StringValue("all stations ready"), panel)
	if err != nil {
		log.Fatalf("Failed to send: %v", err)
	}
	fmt.Printf("Sent with %d failed handlers\n", failed)

	stats := system.Stats()
	fmt.Printf("Stats: sends=%d deliveries=%d rejected=%d failures=%d\n",
		stats.Sends, stats.Deliveries, stats.Rejected, stats.Failures)

	// Check health status
	fmt.Println("\n=== Health Check Demo ===")
	health, err := app.Lifecycle().Health(ctx)
	if err != nil {
		log.Printf("Failed to get health status: %v", err)
	} else {
		fmt.Println("Service Health Status:")
		for serviceName, status := range health {
			fmt.Printf("  %s: %s - %s\n", serviceName, status.State, status.Message)
		}
	}

	// Graceful shutdown
	fmt.Println("\n=== Graceful Shutdown Demo ===")
	fmt.Println("Shutting down application...")
	if err := app.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	} else {
		fmt.Println("Application shut down successfully")
	}

	fmt.Println("\n=== Demo Complete ===")
}
