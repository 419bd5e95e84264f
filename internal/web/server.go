// Package web exposes the manager over HTTP plus a server sent event stream
// mirroring every state and connection broadcast.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	sse "github.com/r3labs/sse/v2"

	"github.com/yummydirtx/open-gamalta/internal/manager"
	"github.com/yummydirtx/open-gamalta/internal/scene"
)

const (
	streamState      = "state"
	streamConnection = "connection"
)

type Server struct {
	logger  *log.Logger
	manager *manager.Manager
	scenes  *scene.Registry
	events  *sse.Server
	http    *http.Server
	subID   uuid.UUID
}

func NewServer(logger *log.Logger, mgr *manager.Manager, scenes *scene.Registry, address string) *Server {
	events := sse.New()
	events.AutoReplay = false
	events.CreateStream(streamState)
	events.CreateStream(streamConnection)

	s := &Server{
		logger:  logger,
		manager: mgr,
		scenes:  scenes,
		events:  events,
	}
	s.http = &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /events", s.events.ServeHTTP)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/devices", s.handleScan)
	mux.HandleFunc("POST /api/connect", s.handleConnect)
	mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)

	mux.HandleFunc("POST /api/power", s.handlePower)
	mux.HandleFunc("POST /api/color", s.handleColor)
	mux.HandleFunc("POST /api/brightness", s.handleBrightness)
	mux.HandleFunc("POST /api/mode", s.handleMode)
	mux.HandleFunc("POST /api/name", s.handleName)
	mux.HandleFunc("POST /api/lightning", s.handleLightning)
	mux.HandleFunc("POST /api/lightning/preview", s.handleLightningPreview)

	mux.HandleFunc("GET /api/scenes", s.handleSceneList)
	mux.HandleFunc("POST /api/scenes", s.handleSceneRegister)
	mux.HandleFunc("DELETE /api/scenes/{mode}", s.handleSceneUnregister)
	mux.HandleFunc("GET /api/scenes/{mode}/preview", s.handleScenePreview)

	return mux
}

// Handler exposes the route table, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe starts forwarding manager events to the SSE streams and
// serves until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.subID = s.manager.Subscribe(s.publishEvent)
	s.logger.Info("Web server listening", "address", s.http.Addr)

	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.manager.Unsubscribe(s.subID)
	s.events.Close()
	return s.http.Shutdown(ctx)
}

// publishEvent mirrors a manager broadcast onto the matching SSE stream.
func (s *Server) publishEvent(event manager.Event) {
	switch event.Type {
	case manager.EventState:
		if event.State == nil {
			return
		}
		data, err := json.Marshal(stateResponse(*event.State))
		if err != nil {
			return
		}
		s.events.Publish(streamState, &sse.Event{Event: []byte(streamState), Data: data})
	case manager.EventConnection:
		if event.Connection == nil {
			return
		}
		data, err := json.Marshal(connectionBody{
			Connected: event.Connection.Connected,
			Address:   event.Connection.Address,
			Name:      event.Connection.Name,
		})
		if err != nil {
			return
		}
		s.events.Publish(streamConnection, &sse.Event{Event: []byte(streamConnection), Data: data})
	}
}
