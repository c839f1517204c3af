package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"inkboard/src/pkg/data"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/replication"
)

const (
	sessionIDLength        = 32
	defaultCleanupInterval = 5 * time.Minute
	defaultSessionTimeout  = 30 * time.Minute
	defaultTickInterval    = 20 * time.Millisecond
	remoteQueueSize        = 256
)

// ErrStopped is returned for commands sent after Stop.
var ErrStopped = errors.New("session manager stopped")

// SessionManager manages multiple concurrent sessions. Local commands, remote
// replication commands, transition ticks and session cleanup all run on one
// executor goroutine, so the surfaces are only ever touched from there.
type SessionManager struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	dataManager  *data.DataManager
	done         chan struct{}
	stopOnce     sync.Once
	stopped      chan struct{}
	commandQueue chan commandExecution
	remoteQueue  chan replication.Command
	logger       *log.Logger
}

// commandExecution represents a command to be executed in a session, its result and error
type commandExecution struct {
	session *Session
	command model.Command
	result  chan interface{}
	err     chan error
}

// NewSessionManager starts the command executor goroutine
func NewSessionManager(dataManager *data.DataManager, logger *log.Logger) (*SessionManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	ctx := context.Background()
	logger.Info(ctx, "Creating new SessionManager", nil)

	if dataManager == nil {
		logger.Error(ctx, "Data manager not initialized", nil)
		return nil, fmt.Errorf("data manager not initialized")
	}

	sm := &SessionManager{
		sessions:     make(map[string]*Session),
		dataManager:  dataManager,
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		commandQueue: make(chan commandExecution),
		remoteQueue:  make(chan replication.Command, remoteQueueSize),
		logger:       logger,
	}
	go sm.commandExecutor(defaultTickInterval, defaultCleanupInterval)

	logger.Info(ctx, "SessionManager created successfully", nil)
	return sm, nil
}

// SessionAdd creates a new session and returns its ID
func (sm *SessionManager) SessionAdd() (string, error) {
	ctx := context.Background()
	sm.logger.Info(ctx, "Adding new session", nil)

	sessionID, err := generateSessionID()
	if err != nil {
		sm.logger.Error(ctx, "Failed to generate session ID", log.Fields{"error": err})
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}

	session, err := NewSession(sessionID, sm.dataManager, sm.logger)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()

	sm.logger.Info(ctx, "New session added", log.Fields{"sessionID": sessionID})
	return sessionID, nil
}

// SessionGet retrieves a session by its ID
func (sm *SessionManager) SessionGet(sessionID string) (*Session, bool) {
	sm.mu.RLock()
	session, exists := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !exists {
		sm.logger.Warn(context.Background(), "Session not found", log.Fields{"sessionID": sessionID})
	}
	return session, exists
}

// SessionList returns the exported view of every session, oldest activity first
func (sm *SessionManager) SessionList() []model.Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]model.Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.Before(out[j].LastActivity) })
	return out
}

// SessionDelete removes a session
func (sm *SessionManager) SessionDelete(sessionID string) {
	ctx := context.Background()
	sm.logger.Info(ctx, "Deleting session", log.Fields{"sessionID": sessionID})

	sm.mu.Lock()
	session, exists := sm.sessions[sessionID]
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if !exists {
		sm.logger.Warn(ctx, "Attempted to delete non-existent session", log.Fields{"sessionID": sessionID})
		return
	}
	sm.dataManager.DrawableManager.CancelLine(session.lineKey())
	sm.logger.Info(ctx, "Session deleted", log.Fields{"sessionID": sessionID})
}

// SessionRun executes a command for a specific session
func (sm *SessionManager) SessionRun(sessionID string, cmd model.Command) (interface{}, error) {
	ctx := context.Background()

	session, exists := sm.SessionGet(sessionID)
	if !exists {
		sm.logger.Error(ctx, "Session not found", log.Fields{"sessionID": sessionID})
		return nil, errors.New("session not found")
	}

	// Log command in command log
	sm.logger.Command(ctx, "Command received", log.Fields{
		"sessionID": sessionID,
		"scope":     cmd.Scope,
		"operation": cmd.Operation,
		"args":      cmd.Args,
	})

	sessionCmd := NewSessionCommand(cmd, sm.logger)
	if err := sessionCmd.Validate(); err != nil {
		return nil, err
	}

	exec := commandExecution{
		session: session,
		command: cmd,
		result:  make(chan interface{}, 1),
		err:     make(chan error, 1),
	}
	select {
	case sm.commandQueue <- exec:
	case <-sm.done:
		return nil, ErrStopped
	}

	select {
	case res := <-exec.result:
		return res, nil
	case e := <-exec.err:
		return nil, e
	}
}

// ApplyRemote queues a command received from another participant. It never
// blocks the network reader; when the queue is full the command is dropped
// and logged.
func (sm *SessionManager) ApplyRemote(cmd replication.Command) {
	select {
	case <-sm.done:
		return
	default:
	}
	select {
	case sm.remoteQueue <- cmd:
	default:
		sm.logger.Error(context.Background(), "Remote command queue full, command dropped", log.Fields{"commandID": cmd.ID, "verb": cmd.Verb})
	}
}

// Stop ends the executor goroutine and waits for it to finish. Further
// commands fail with ErrStopped.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() {
		sm.logger.Info(context.Background(), "Stopping session manager", nil)
		close(sm.done)
	})
	<-sm.stopped
}

// commandExecutor processes local commands, remote commands, transition
// ticks and the session cleanup until Stop
func (sm *SessionManager) commandExecutor(tickInterval, cleanupInterval time.Duration) {
	ctx := context.Background()
	sm.logger.Info(ctx, "Starting command executor", nil)
	defer close(sm.stopped)

	tick := time.NewTicker(tickInterval)
	defer tick.Stop()
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()
	last := time.Now()

	for {
		select {
		case cmd := <-sm.commandQueue:
			sm.logger.Debug(ctx, "Processing command", log.Fields{"sessionID": cmd.session.ID, "command": cmd.command})
			result, err := cmd.session.CommandRun(cmd.command)
			if err != nil {
				cmd.err <- err
			} else {
				cmd.result <- result
			}
		case rc := <-sm.remoteQueue:
			sm.applyRemote(rc)
		case now := <-tick.C:
			sm.dataManager.Scheduler.Tick(now.Sub(last))
			last = now
		case <-cleanup.C:
			sm.cleanupInactiveSessions()
		case <-sm.done:
			sm.logger.Info(ctx, "Command executor stopped", nil)
			return
		}
	}
}

func (sm *SessionManager) applyRemote(cmd replication.Command) {
	if err := sm.dataManager.Bridge.ApplyRemote(cmd); err != nil {
		sm.logger.Warn(context.Background(), "Remote command rejected", log.Fields{
			"error":     err,
			"commandID": cmd.ID,
			"origin":    cmd.Origin,
			"verb":      cmd.Verb,
		})
	}
}

// cleanupInactiveSessions removes inactive sessions
func (sm *SessionManager) cleanupInactiveSessions() {
	ctx := context.Background()
	sm.logger.Debug(ctx, "Running cleanup for inactive sessions", nil)

	var stale []string
	now := time.Now()
	sm.mu.RLock()
	for id, session := range sm.sessions {
		if now.Sub(session.LastActivity) > defaultSessionTimeout {
			stale = append(stale, id)
		}
	}
	sm.mu.RUnlock()

	for _, id := range stale {
		sm.logger.Info(ctx, "Removing inactive session", log.Fields{"sessionID": id})
		sm.SessionDelete(id)
	}
}

// generateSessionID creates a cryptographically secure random session ID
func generateSessionID() (string, error) {
	b := make([]byte, sessionIDLength)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
