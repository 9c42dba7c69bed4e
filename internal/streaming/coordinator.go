package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ebuka1017/Robin/internal/logging"
)

// State is the session lifecycle position. Transitions only move forward.
type State int

const (
	StateInit State = iota
	StateSessionStarted
	StatePromptStarted
	StateSystemPromptSent
	StateAudioActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSessionStarted:
		return "session_started"
	case StatePromptStarted:
		return "prompt_started"
	case StateSystemPromptSent:
		return "system_prompt_sent"
	case StateAudioActive:
		return "audio_active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ToolGateway is the tool side of a session: discovery at handshake time,
// invocation during the stream.
type ToolGateway interface {
	ToolInvoker
	ToolConfiguration(ctx context.Context) (json.RawMessage, error)
}

// SessionMarker tracks which sessions currently hold a live stream.
// Implementations are best-effort; failures must not affect the stream.
type SessionMarker interface {
	MarkActive(ctx context.Context, sessionID string)
	ClearActive(ctx context.Context, sessionID string)
}

// ServiceConfig carries the per-process streaming parameters.
type ServiceConfig struct {
	SystemPrompt string
	VoiceID      string
	Inference    InferenceConfiguration

	// GraceTimeout bounds the wait for the second pump goroutine after the
	// first one exits. TeardownTimeout bounds the closing handshake.
	GraceTimeout    time.Duration
	TeardownTimeout time.Duration
}

// Service runs voice sessions. One Service serves the whole process; each
// Run call owns exactly one client connection and one model stream.
type Service struct {
	cfg     ServiceConfig
	factory TransportFactory
	tools   ToolGateway
	sink    TranscriptSink
	marker  SessionMarker
	log     *logging.Logger
}

// NewService wires a streaming service from its collaborators.
func NewService(cfg ServiceConfig, factory TransportFactory, tools ToolGateway, sink TranscriptSink, marker SessionMarker, log *logging.Logger) *Service {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.GraceTimeout <= 0 {
		cfg.GraceTimeout = 2 * time.Second
	}
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = 5 * time.Second
	}
	return &Service{cfg: cfg, factory: factory, tools: tools, sink: sink, marker: marker, log: log}
}

// Run drives one session to completion. It returns when the session is
// fully torn down, whatever ended it: client disconnect, model stream
// completion, context cancellation, or a transport failure. Errors are
// handled internally; the caller only needs to know the session is over.
func (s *Service) Run(ctx context.Context, conn ClientConn, sessionID string) {
	c := &coordinator{
		svc:       s,
		sessionID: sessionID,
		sctx:      newStreamContext(),
		log:       s.log.Session(sessionID),
	}
	c.run(ctx, conn)
}

// streamContext holds the correlation ids that tie the session's wire
// events together. Fresh per session.
type streamContext struct {
	promptName        string
	systemContentName string
	audioContentName  string
}

func newStreamContext() streamContext {
	return streamContext{
		promptName:        uuid.New().String(),
		systemContentName: uuid.New().String(),
		audioContentName:  uuid.New().String(),
	}
}

type coordinator struct {
	svc       *Service
	sessionID string
	sctx      streamContext
	log       *logging.Logger

	state     State
	transport ModelTransport
	writer    *sessionWriter
	closeOnce sync.Once
}

func (c *coordinator) setState(next State) {
	c.log.Debug().Str("from", c.state.String()).Str("to", next.String()).Msg("state transition")
	c.state = next
}

func (c *coordinator) run(ctx context.Context, conn ClientConn) {
	tools, err := c.svc.tools.ToolConfiguration(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("tool discovery failed, session continues without tools")
		tools = nil
	}

	transport, err := c.svc.factory(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("opening model stream failed")
		_ = conn.WriteJSON(NewErrorMessage("speech model unavailable"))
		c.teardown()
		return
	}
	c.transport = transport
	c.writer = newSessionWriter(transport)

	if err := c.handshake(ctx, tools); err != nil {
		c.log.Error().Err(err).Str("state", c.state.String()).Msg("session handshake failed")
		_ = conn.WriteJSON(NewErrorMessage("session setup failed"))
		c.teardown()
		return
	}
	c.setState(StateAudioActive)
	c.svc.marker.MarkActive(ctx, c.sessionID)
	c.log.Info().Msg("session streaming")

	relay := &inputRelay{
		conn:        conn,
		writer:      c.writer,
		promptName:  c.sctx.promptName,
		contentName: c.sctx.audioContentName,
		log:         c.log.Sub("relay"),
	}
	dispatcher := &outputDispatcher{
		sessionID:  c.sessionID,
		transport:  c.transport,
		writer:     c.writer,
		conn:       conn,
		bridge:     newToolBridge(c.svc.tools, c.log.Sub("tools")),
		sink:       c.svc.sink,
		promptName: c.sctx.promptName,
		log:        c.log.Sub("dispatch"),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	relayDone := make(chan error, 1)
	dispatchDone := make(chan error, 1)
	go func() { relayDone <- relay.run(runCtx) }()
	go func() { dispatchDone <- dispatcher.run(runCtx) }()

	// Whichever pump exits first ends the session. The sibling gets the
	// cancellation plus a short grace period to wind down.
	select {
	case err := <-relayDone:
		c.logPumpExit("relay", err)
		cancel()
		c.awaitPump(dispatchDone, "dispatch")
	case err := <-dispatchDone:
		c.logPumpExit("dispatch", err)
		cancel()
		c.awaitPump(relayDone, "relay")
	case <-ctx.Done():
		cancel()
		c.awaitPump(relayDone, "relay")
		c.awaitPump(dispatchDone, "dispatch")
	}

	c.teardown()
}

// handshake walks the opening event sequence: sessionStart, promptStart,
// the system prompt as a TEXT block, then the audio contentStart that
// makes the session ready for microphone input.
func (c *coordinator) handshake(ctx context.Context, tools json.RawMessage) error {
	if err := c.writer.sendEvent(ctx, NewSessionStart(c.svc.cfg.Inference)); err != nil {
		return fmt.Errorf("sessionStart: %w", err)
	}
	c.setState(StateSessionStarted)

	if err := c.writer.sendEvent(ctx, NewPromptStart(c.sctx.promptName, c.svc.cfg.VoiceID, tools)); err != nil {
		return fmt.Errorf("promptStart: %w", err)
	}
	c.setState(StatePromptStarted)

	if err := c.writer.sendEvents(ctx,
		NewTextContentStart(c.sctx.promptName, c.sctx.systemContentName, WireRoleSystem),
		NewTextInput(c.sctx.promptName, c.sctx.systemContentName, c.svc.cfg.SystemPrompt),
		NewContentEnd(c.sctx.promptName, c.sctx.systemContentName),
	); err != nil {
		return fmt.Errorf("system prompt: %w", err)
	}
	c.setState(StateSystemPromptSent)

	if err := c.writer.sendEvent(ctx, NewAudioContentStart(c.sctx.promptName, c.sctx.audioContentName)); err != nil {
		return fmt.Errorf("audio contentStart: %w", err)
	}
	return nil
}

func (c *coordinator) logPumpExit(name string, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.Debug().Err(err).Str("pump", name).Msg("pump ended")
		return
	}
	c.log.Debug().Str("pump", name).Msg("pump ended")
}

func (c *coordinator) awaitPump(done <-chan error, name string) {
	select {
	case err := <-done:
		c.logPumpExit(name, err)
	case <-time.After(c.svc.cfg.GraceTimeout):
		c.log.Warn().Str("pump", name).Msg("pump did not stop within grace period")
	}
}

// teardown closes the session exactly once: the closing events go out
// best-effort on a fresh deadline so teardown still runs when the
// session's own context is already cancelled, then the transport closes
// and the active marker clears. Safe to call from any exit path.
func (c *coordinator) teardown() {
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		ctx, cancel := context.WithTimeout(context.Background(), c.svc.cfg.TeardownTimeout)
		defer cancel()

		if c.writer != nil {
			closing := []Envelope{
				NewContentEnd(c.sctx.promptName, c.sctx.audioContentName),
				NewPromptEnd(c.sctx.promptName),
				NewSessionEnd(),
			}
			for _, ev := range closing {
				if err := c.writer.sendEvent(ctx, ev); err != nil {
					c.log.Debug().Err(err).Msg("closing event not delivered")
					break
				}
			}
		}

		if c.transport != nil {
			if err := c.transport.Close(); err != nil {
				c.log.Debug().Err(err).Msg("model stream close failed")
			}
		}

		c.setState(StateClosed)
		c.svc.marker.ClearActive(ctx, c.sessionID)
		c.log.Info().Msg("session closed")
	})
}
