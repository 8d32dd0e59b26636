// Package wsrepl serves QRT as an interactive websocket REPL: each
// connection gets its own session with a persistent variable table, and
// every inbound text frame is evaluated as one top-level program against
// that session's table.
package wsrepl

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qrtlang/qrt/internal/evaluator"
	"github.com/qrtlang/qrt/internal/obslog"
	"github.com/qrtlang/qrt/internal/obsmetrics"
	"github.com/qrtlang/qrt/internal/obstracing"
	"github.com/qrtlang/qrt/internal/stackentry"
	"github.com/qrtlang/qrt/internal/tracestore"
	"github.com/qrtlang/qrt/internal/value"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Response is the JSON envelope sent back for every evaluated program.
type Response struct {
	SessionID string   `json:"session_id"`
	Result    string   `json:"result,omitempty"`
	Error     string   `json:"error,omitempty"`
	Offset    int      `json:"offset,omitempty"`
	Line      int      `json:"line,omitempty"`
	Stack     []string `json:"stack,omitempty"`
}

// Server upgrades HTTP connections to REPL sessions.
type Server struct {
	logger  *obslog.Logger
	metrics *obsmetrics.Metrics
	store   tracestore.Store
}

// New builds a Server that logs through logger, records through metrics,
// and persists a Run per evaluated message through store. Any of the three
// may be nil.
func New(logger *obslog.Logger, metrics *obsmetrics.Metrics, store tracestore.Store) *Server {
	return &Server{logger: logger, metrics: metrics, store: store}
}

// ServeHTTP upgrades the request and runs the session loop until the
// client disconnects.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	if srv.metrics != nil {
		srv.metrics.SessionOpened()
		defer srv.metrics.SessionClosed()
	}
	if srv.logger != nil {
		srv.logger.Info(sessionID, "wsrepl session opened", nil)
		defer srv.logger.Info(sessionID, "wsrepl session closed", nil)
	}

	session := &replSession{vars: make(map[string]value.Value)}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go srv.pingLoop(conn, done)
	defer close(done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		resp := srv.evalOne(sessionID, session, msg)

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		encoded, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
			return
		}
	}
}

func (srv *Server) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// replSession carries one connection's persistent variable table across
// successive top-level evaluations — the host-level carrying described by
// evaluator.EvaluateSession.
type replSession struct {
	vars map[string]value.Value
}

func (srv *Server) evalOne(sessionID string, session *replSession, program []byte) Response {
	start := time.Now()

	ctx, span := obstracing.StartEvaluation(context.Background(), sessionID, len(program))
	defer span.End()
	spans := obstracing.NewSpanStack(ctx)
	hooks := evaluator.Hooks{
		OnInvokeStart: func(offset int) { spans.Push(offset) },
		OnInvokeEnd:   func(offset int, failed bool) { spans.Pop(failed) },
	}

	result, vars, stats, evalErr := evaluator.EvaluateSessionWithHooks(program, value.Void{}, session.vars, hooks)
	session.vars = vars
	elapsed := time.Since(start)

	if srv.metrics != nil {
		srv.metrics.ObserveStats(stats.LoopKills, stats.Invocations, stats.MaxStackDepth)
	}

	if evalErr != nil {
		obstracing.RecordFailure(span, evalErr.Message, evalErr.Offset, evalErr.Line)
		if srv.metrics != nil {
			srv.metrics.ObserveEvaluation(elapsed.Seconds(), evalErr.Message)
		}
		if srv.logger != nil {
			srv.logger.Warn(sessionID, "evaluation failed", map[string]interface{}{
				"offset": evalErr.Offset, "line": evalErr.Line, "message": evalErr.Message,
			})
		}
		srv.recordRun(sessionID, tracestore.Run{
			ID: uuid.NewString(), RunID: sessionID, StartedAt: start,
			DurationMS: elapsed.Milliseconds(), ProgramLen: len(program),
			Outcome: "error", ErrorKind: evalErr.Message,
			Offset: evalErr.Offset, Line: evalErr.Line,
		})
		return Response{
			SessionID: sessionID,
			Error:     evalErr.Message,
			Offset:    evalErr.Offset,
			Line:      evalErr.Line,
			Stack:     renderStack(evalErr.Stack),
		}
	}

	if srv.metrics != nil {
		srv.metrics.ObserveEvaluation(elapsed.Seconds(), "")
	}
	srv.recordRun(sessionID, tracestore.Run{
		ID: uuid.NewString(), RunID: sessionID, StartedAt: start,
		DurationMS: elapsed.Milliseconds(), ProgramLen: len(program), Outcome: "ok",
	})
	return Response{SessionID: sessionID, Result: value.Render(result)}
}

// recordRun persists run when srv was built with a trace store. Persistence
// failures are logged, never surfaced to the connection.
func (srv *Server) recordRun(sessionID string, run tracestore.Run) {
	if srv.store == nil {
		return
	}
	if err := srv.store.RecordRun(context.Background(), run); err != nil && srv.logger != nil {
		srv.logger.Warn(sessionID, "trace store record failed", map[string]interface{}{"error": err.Error()})
	}
}

// renderStack renders the final operand stack (bottom to top) that every
// error response echoes, mirroring the CLI's optional stack dump on error.
func renderStack(stack []stackentry.Entry) []string {
	rendered := make([]string, len(stack))
	for i, e := range stack {
		rendered[i] = stackentry.Render(e)
	}
	return rendered
}
