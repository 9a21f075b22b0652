// Package server exposes the editor's command surface over HTTP and
// WebSockets: a client posts {"request": "...", "arguments": [...]}, the
// server translates it into a task, enqueues it, and routes the completion
// back to the client as {"code": ..., "payload": ...}.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
	"github.com/Conceptual-Machines/hb100-editor/internal/task"
)

const maxRequestSize = 16 * 1024

// Request validation outcomes, each with its own reason string.
const (
	reasonInvalidJSON      = "Invalid JSON"
	reasonNotObject        = "Not a JSON object"
	reasonInvalidRequest   = "Invalid request"
	reasonInvalidArguments = "Invalid arguments"
	reasonInvalidArgument  = "Invalid argument (not a string)"
	reasonInvalidCommand   = "Invalid command"
)

// Response is the envelope every client answer uses.
type Response struct {
	Code    int `json:"code"`
	Payload any `json:"payload,omitempty"`
}

// Server is the HTTP/WebSocket adapter. It only enqueues tasks and relays
// completions; all the work happens on the editor's dispatch loop.
type Server struct {
	queue    *task.Queue
	srv      *http.Server
	upgrader websocket.Upgrader

	clients *clientTable
}

// New creates a server feeding the given task queue.
func New(queue *task.Queue) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		queue: queue,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: newClientTable(),
	}
	router := gin.New()
	router.Use(RecoverWithSentry())
	router.Use(SentryMiddleware())
	router.Use(RequestTracking())
	router.POST("/", s.handlePost)
	router.GET("/", s.handleWS)
	router.GET("/ws", s.handleWS)
	s.srv = &http.Server{Handler: router}
	return s
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start binds the listener and serves in the background. A bind failure is
// returned synchronously so startup can treat it as fatal.
func (s *Server) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("binding HTTP/WebSocket server: %w", err)
	}
	logger.Info("Starting HTTP/WebSocket server", logger.Fields{"port": port})
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP/WebSocket server stopped", err, nil)
		}
	}()
	return nil
}

// Shutdown stops the listener and closes every WebSocket client.
func (s *Server) Shutdown(ctx context.Context) {
	s.clients.closeAll()
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Warn("HTTP/WebSocket shutdown", logger.Fields{"err": err})
	}
	logger.Info("HTTP/WebSocket server stopped", nil)
}

// parseRequest validates a command document and builds the task. On failure
// it returns the reason string for the 400 answer.
func parseRequest(data []byte) (*task.Task, string) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, reasonInvalidJSON
	}
	doc, ok := root.(map[string]any)
	if !ok {
		return nil, reasonNotObject
	}
	request, ok := doc["request"].(string)
	if !ok {
		return nil, reasonInvalidRequest
	}
	argv := []string{request}
	if rawArgs, present := doc["arguments"]; present {
		args, ok := rawArgs.([]any)
		if !ok {
			return nil, reasonInvalidArguments
		}
		for _, a := range args {
			str, ok := a.(string)
			if !ok {
				return nil, reasonInvalidArgument
			}
			argv = append(argv, str)
		}
	}
	t := task.New(argv)
	if t == nil {
		return nil, reasonInvalidCommand
	}
	return t, ""
}

// handlePost serves the HTTP command surface: the task's completion becomes
// the POST response body. Validation failures answer with a code 400
// envelope, mirroring what the WebSocket side sends.
func (s *Server) handlePost(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusOK, Response{Code: task.CodeInvalidArgument, Payload: gin.H{"reason": reasonInvalidJSON}})
		return
	}
	logger.Info("[HTTP] "+strings.TrimSpace(string(body)), nil)
	t, reason := parseRequest(body)
	if reason != "" {
		c.JSON(http.StatusOK, Response{Code: task.CodeInvalidArgument, Payload: gin.H{"reason": reason}})
		return
	}
	done := make(chan Response, 1)
	t.AttachCompletion(nil, func(code int, payload any, _ any) {
		done <- Response{Code: code, Payload: payload}
	})
	s.queue.Add(t)
	select {
	case resp := <-done:
		c.JSON(http.StatusOK, resp)
	case <-c.Request.Context().Done():
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	defer c.Request.Body.Close()
	return io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestSize))
}

// handleWS upgrades the connection and serves the WebSocket command surface:
// each text frame is a command document; the client gets an immediate ack
// and, later, the task completion as a separate frame.
func (s *Server) handleWS(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.String(http.StatusNotFound, "Use POST")
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", logger.Fields{"err": err})
		return
	}
	client := s.clients.add(conn)
	defer s.clients.remove(client.id)
	go client.writeLoop()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		logger.Info("[WS] "+strings.TrimSpace(string(data)), nil)
		t, reason := parseRequest(data)
		if reason != "" {
			client.send(Response{Code: task.CodeInvalidArgument, Payload: gin.H{"reason": reason}})
			continue
		}
		t.AttachCompletion(client.id, s.taskDone)
		// Ack first so the completion frame can never overtake it.
		client.send(Response{Code: task.CodeOK, Payload: gin.H{"reason": "Command queued"}})
		s.queue.Add(t)
	}
}

// taskDone routes a completion back to the originating WebSocket client, if
// it is still connected.
func (s *Server) taskDone(code int, payload any, ctx any) {
	id, ok := ctx.(string)
	if !ok {
		return
	}
	if client := s.clients.find(id); client != nil {
		client.send(Response{Code: code, Payload: payload})
	}
}
