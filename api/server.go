package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
)

// App is a struct that implements http.Handler interface
type App struct {
	V1ApiHandler http.Handler
}

// Top level handler for http requests
func (h *App) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	var head string

	head, req.URL.Path = ShiftPath(req.URL.Path)
	switch head {
	case "v1":
		h.V1ApiHandler.ServeHTTP(res, req)
	default:
		http.Error(res, "Not Found", http.StatusNotFound)
	}
}

// NewAppHandler returns a new application (root) http handler
func NewAppHandler(args ServerArgs) http.Handler {
	var app http.Handler = &App{
		V1ApiHandler: NewV1Handler(args),
	}

	if args.Debug {
		logger := NewHTTPLogger("http")
		app = logger.Handler(app)
	}

	return app
}

// ServerArgs can be used to pass arguments to the server
type ServerArgs struct {
	// Port to listen on. "0" picks a free port.
	Port       string
	Debug      bool
	AuthToken  string
	AppVersion string
	Nc         *nats.Conn
}

// Server is the HTTP api server
type Server struct {
	args     ServerArgs
	server   *http.Server
	listener net.Listener
}

// NewServer creates a HTTP api server and binds the listening port so the
// address is known before Start is called.
func NewServer(args ServerArgs) (*Server, error) {
	if args.Nc == nil {
		return nil, errors.New("http api server requires a NATS connection")
	}

	l, err := net.Listen("tcp", fmt.Sprintf(":%s", args.Port))
	if err != nil {
		return nil, fmt.Errorf("Error listening on port %v: %w", args.Port, err)
	}

	return &Server{
		args:     args,
		listener: l,
		server: &http.Server{
			Handler:           NewAppHandler(args),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Addr returns the address the server listens on
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start the api server. Blocks until Stop is called.
func (s *Server) Start() error {
	log.Println("Starting http server, address:", s.listener.Addr())
	err := s.server.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop the api server
func (s *Server) Stop(_ error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.Println("Error shutting down http server:", err)
	}
	// the listener is only owned by the http server once Serve is called
	_ = s.listener.Close()
}
