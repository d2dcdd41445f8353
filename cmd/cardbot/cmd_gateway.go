package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"cardbot/pkg/bus"
	"cardbot/pkg/channels"
	"cardbot/pkg/logger"
	"cardbot/pkg/sentinel"
	"cardbot/pkg/server"
	"cardbot/pkg/turns"
)

const gatewayShutdownTimeout = 5 * time.Second

func gatewayCmd() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		fmt.Printf("Error initializing dispatcher: %v\n", err)
		os.Exit(1)
	}

	msgBus := bus.NewMessageBus()
	channelManager, err := channels.NewManager(cfg, msgBus)
	if err != nil {
		fmt.Printf("Error initializing channels: %v\n", err)
		os.Exit(1)
	}
	turnLoop := turns.NewLoop(msgBus, dispatcher)
	httpServer := server.NewServer(cfg, dispatcher)

	var sentinelService *sentinel.Service
	if cfg.Sentinel.Enabled {
		sentinelService = sentinel.NewService(cfg, getConfigPath(), cfg.Sentinel.IntervalSec, cfg.Sentinel.AutoHeal, nil)
		httpServer.SetHealthSource(sentinelService.Issues)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enabledChannels := channelManager.GetEnabledChannels()
	if len(enabledChannels) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", enabledChannels)
	} else {
		fmt.Println("⚠ No channels enabled, serving HTTP only")
	}
	fmt.Printf("✓ Gateway starting on %s\n", cfg.GatewayAddr())
	fmt.Println("Press Ctrl+C to stop.")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.ListenAndServe()
	})

	g.Go(func() error {
		if sentinelService != nil {
			sentinelService.Start(gctx)
		}
		if !turnLoop.Start(gctx) {
			return fmt.Errorf("turn loop already running")
		}
		return channelManager.StartAll(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.InfoC("gateway", "Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gatewayShutdownTimeout)
		defer cancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.WarnCF("gateway", "HTTP gateway shutdown failed", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
		turnLoop.Stop()
		if sentinelService != nil {
			sentinelService.Stop()
		}
		if err := channelManager.StopAll(shutdownCtx); err != nil {
			logger.WarnCF("gateway", "Channel shutdown failed", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
		msgBus.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		fmt.Printf("Gateway stopped with error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Gateway stopped")
}
