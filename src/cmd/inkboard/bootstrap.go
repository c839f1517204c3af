package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"inkboard/src/pkg/cli"
	"inkboard/src/pkg/config"
	"inkboard/src/pkg/data"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/measure"
	"inkboard/src/pkg/replication"
	"inkboard/src/pkg/session"
	"inkboard/src/pkg/storage"
)

// bootstrap initializes and runs the Inkboard application.
// It loads configuration, initializes components (logger, storage, data
// manager, session manager, replication, CLI), runs the CLI, and handles
// graceful shutdown.
func bootstrap(configPath string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up channel to receive interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Load configuration
	if err := config.ConfigLoad(configPath); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := config.ConfigGet()

	logger, err := log.NewLogger(cfg, log.LevelInfo)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
		}
	}()

	logger.Info(ctx, "Application started", log.Fields{"config": config.ConfigPath(), "participant": cfg.Participant})

	// Storage is optional; without it saving, loading and images are disabled
	var surfaceStore storage.SurfaceStore
	var blobStore storage.BlobStore
	store, err := storage.NewStorage(cfg, logger)
	if err != nil {
		logger.Warn(ctx, "Storage unavailable, persistence disabled", log.Fields{"error": err})
		fmt.Printf("Warning: storage unavailable: %v\n", err)
	} else {
		surfaceStore, blobStore = store.SurfaceStore, store.BlobStore
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error(context.Background(), "Failed to close storage", log.Fields{"error": err})
			}
		}()
	}

	measurer, err := measure.NewFontMeasurer(cfg.PixelsPerUnit)
	if err != nil {
		logger.Error(ctx, "Failed to initialize text measurement", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize text measurement: %w", err)
	}

	dataManager, err := data.NewDataManager(surfaceStore, blobStore, measurer, cfg, logger)
	if err != nil {
		logger.Error(ctx, "Failed to initialize data manager", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize data manager: %w", err)
	}

	sessionManager, err := session.NewSessionManager(dataManager, logger)
	if err != nil {
		logger.Error(ctx, "Failed to initialize session manager", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}
	defer sessionManager.Stop()

	links := startReplication(ctx, cfg.ReplicationListen, cfg.ReplicationPeers, sessionManager, logger)
	dataManager.Bridge.SetSender(links.send)

	cliInstance, err := cli.NewCLI(sessionManager, cfg.HistoryFile, logger)
	if err != nil {
		logger.Error(ctx, "Failed to initialize CLI", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize CLI: %w", err)
	}

	// Set up graceful shutdown
	go func() {
		select {
		case <-sigChan:
			logger.Info(context.Background(), "Received interrupt signal. Shutting down...", nil)
			fmt.Println("\nReceived interrupt signal. Shutting down...")
			cliInstance.Stop()
		case <-ctx.Done():
		}
	}()

	runErr := cliInstance.Run()
	if runErr != nil {
		logger.Error(ctx, "CLI error", log.Fields{"error": runErr})
	}

	dataManager.Bridge.SetSender(nil)
	cancel()
	links.wait()

	logger.Info(context.Background(), "Application shutting down", nil)
	fmt.Println("Goodbye!")
	return runErr
}

// replicationLinks holds the hub and the peer connections of this participant
type replicationLinks struct {
	hub   *replication.Hub
	peers []*replication.Peer
	done  chan struct{}
	count int
}

// startReplication serves the hub when listen is set and connects to every
// peer. Failures are logged; the application keeps running locally.
func startReplication(ctx context.Context, listen string, peerURLs []string, sm *session.SessionManager, logger *log.Logger) *replicationLinks {
	links := &replicationLinks{done: make(chan struct{}, 1+len(peerURLs))}

	if listen != "" {
		links.hub = replication.NewHub(sm.ApplyRemote, logger)
		links.count++
		go func() {
			defer func() { links.done <- struct{}{} }()
			if err := links.hub.ListenAndServe(ctx, listen); err != nil {
				logger.Error(ctx, "Replication hub stopped", log.Fields{"error": err, "addr": listen})
			}
		}()
	}

	for _, url := range peerURLs {
		url := url
		peer, err := replication.Dial(ctx, url, sm.ApplyRemote, logger)
		if err != nil {
			logger.Warn(ctx, "Failed to connect to peer", log.Fields{"error": err, "url": url})
			continue
		}
		links.peers = append(links.peers, peer)
		links.count++
		go func() {
			defer func() { links.done <- struct{}{} }()
			if err := peer.Run(ctx); err != nil {
				logger.Warn(ctx, "Peer connection lost", log.Fields{"error": err, "url": url})
			}
		}()
	}
	return links
}

// send delivers a local command to the hub's clients and to every dialed peer
func (l *replicationLinks) send(cmd replication.Command) error {
	var errs []error
	if l.hub != nil {
		if err := l.hub.Broadcast(cmd); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range l.peers {
		if err := p.Send(cmd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// wait blocks until the hub and peer loops have returned
func (l *replicationLinks) wait() {
	for _, p := range l.peers {
		p.Close()
	}
	for i := 0; i < l.count; i++ {
		<-l.done
	}
}
