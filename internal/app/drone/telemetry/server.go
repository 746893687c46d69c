// Package telemetry serves a small live dashboard for a running mission:
// the latest state over HTTP and every executor event over a websocket.
package telemetry

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tello-mission/internal/app/drone/command"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const writeWait = 5 * time.Second

// Status is the dashboard's view of the mission in progress.
type Status struct {
	State   command.State `json:"state"`
	Index   int           `json:"index"`
	Label   string        `json:"label,omitempty"`
	Reached int           `json:"reached"`
	Total   int           `json:"total"`
	Message string        `json:"message"`
	Updated time.Time     `json:"updated"`
	Events  int           `json:"events"`
}

// Server implements command.Observer and exposes what it observes.
type Server struct {
	app    *fiber.App
	hub    *Hub
	logger *zap.Logger

	mu     sync.RWMutex
	status Status
	result *command.Result
}

var _ command.Observer = (*Server)(nil)

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		hub:    NewHub(logger),
		logger: logger.Named("telemetry"),
		status: Status{State: command.StateIdle, Index: -1},
	}

	app := fiber.New(fiber.Config{
		AppName:               "Tello Mission",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/result", s.handleResult)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// OnEvent records the event and pushes it to websocket clients.
func (s *Server) OnEvent(ev command.Event) {
	s.mu.Lock()
	s.status = Status{
		State:   ev.State,
		Index:   ev.Index,
		Label:   ev.Label,
		Reached: ev.Reached,
		Total:   ev.Total,
		Message: ev.Message,
		Updated: ev.Time,
		Events:  s.status.Events + 1,
	}
	s.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("Couldn't encode event", zap.Error(err))
		return
	}
	s.hub.Broadcast(data)
}

// SetResult publishes the final mission result.
func (s *Server) SetResult(res *command.Result) {
	s.mu.Lock()
	s.result = res
	s.mu.Unlock()
}

func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Run serves addr until ctx is cancelled. It returns once the listener is
// closed, even when ctx ends before serving has started.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("dashboard listen on %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("Dashboard listening", zap.String("addr", ln.Addr().String()))
		err := s.app.Listener(ln)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		err := s.app.Shutdown()
		_ = ln.Close()
		return err
	})
	return g.Wait()
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

func (s *Server) handleResult(c *fiber.Ctx) error {
	s.mu.RLock()
	res := s.result
	s.mu.RUnlock()
	if res == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no mission result yet"})
	}
	return c.JSON(res)
}

func (s *Server) handleEventsWS(c *websocket.Conn) {
	sub := s.hub.subscribe()
	if sub == nil {
		return
	}
	defer s.hub.unsubscribe(sub)

	// The read side only detects the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			if !ok {
				_ = c.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
