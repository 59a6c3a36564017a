package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/beemon/hivenode/api"
	"github.com/beemon/hivenode/natsserver"
	"github.com/beemon/hivenode/store"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/oklog/run"
)

// ErrServerStopped is returned when the server is stopped
var ErrServerStopped = errors.New("Server stopped")

// Options used for starting hivenode
type Options struct {
	StoreFile         string
	ResetStore        bool
	DataDir           string
	HTTPPort          string
	DebugHTTP         bool
	DebugLifecycle    bool
	NatsServer        string
	NatsDisableServer bool
	NatsPort          int
	NatsHTTPPort      int
	NatsTLSCert       string
	NatsTLSKey        string
	NatsTLSTimeout    float64
	AuthToken         string
	AppVersion        string
	// optional ID (must be unique) for this instance, otherwise, a UUID will be used
	ID string
}

// Server represents a hivenode server process
type Server struct {
	nc          *nats.Conn
	options     Options
	natsServer  *server.Server
	httpAPI     *api.Server
	chStop      chan struct{}
	chWaitStart chan struct{}
}

// NewServer starts the embedded NATS server (unless disabled), connects the
// server side NATS client and binds the HTTP port. Run must be called to
// start serving requests.
func NewServer(o Options) (*Server, error) {
	s := &Server{
		options:     o,
		chStop:      make(chan struct{}),
		chWaitStart: make(chan struct{}),
	}

	natsURL := o.NatsServer

	if !o.NatsDisableServer {
		var err error
		s.natsServer, err = natsserver.NewServer(natsserver.Options{
			Port:       o.NatsPort,
			HTTPPort:   o.NatsHTTPPort,
			Auth:       o.AuthToken,
			TLSCert:    o.NatsTLSCert,
			TLSKey:     o.NatsTLSKey,
			TLSTimeout: o.NatsTLSTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("Error setting up nats server: %v", err)
		}

		err = natsserver.Start(s.natsServer, 10*time.Second)
		if err != nil {
			s.natsServer.Shutdown()
			return nil, err
		}

		natsURL = s.natsServer.ClientURL()
	}

	nc, err := nats.Connect(natsURL,
		nats.Timeout(10*time.Second),
		nats.PingInterval(60*5*time.Second),
		nats.MaxPingsOutstanding(5),
		nats.ReconnectBufSize(5*1024*1024),
		nats.SetCustomDialer(&net.Dialer{
			KeepAlive: -1,
		}),
		nats.Token(o.AuthToken),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ErrorHandler(func(_ *nats.Conn,
			sub *nats.Subscription, err error) {
			var subject string
			if sub != nil {
				subject = sub.Subject
			}
			log.Printf("Server NATS client error, sub: %v, err: %s\n", subject, err)
		}),
		nats.CustomReconnectDelay(func(attempts int) time.Duration {
			log.Println("Server NATS client reconnect attempt #", attempts)
			return time.Millisecond * 250
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("Server NATS client: reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Println("Server NATS client: closed")
		}),
		nats.ConnectHandler(func(_ *nats.Conn) {
			log.Println("Server NATS client: connected")
		}),
	)
	if err != nil {
		s.shutdownNats()
		return nil, fmt.Errorf("Error connecting to nats server: %v", err)
	}
	s.nc = nc

	s.httpAPI, err = api.NewServer(api.ServerArgs{
		Port:       o.HTTPPort,
		Debug:      o.DebugHTTP,
		AuthToken:  o.AuthToken,
		AppVersion: o.AppVersion,
		Nc:         nc,
	})
	if err != nil {
		nc.Close()
		s.shutdownNats()
		return nil, err
	}

	return s, nil
}

func (s *Server) shutdownNats() {
	if s.natsServer != nil {
		s.natsServer.Shutdown()
	}
}

// Nc returns the server side NATS connection
func (s *Server) Nc() *nats.Conn {
	return s.nc
}

// HTTPAddr returns the address the HTTP api listens on
func (s *Server) HTTPAddr() net.Addr {
	return s.httpAPI.Addr()
}

// Run the server -- only returns if there is an error or Stop is called
func (s *Server) Run() error {
	var g run.Group

	logLS := func(m ...any) {}

	if s.options.DebugLifecycle {
		logLS = func(m ...any) {
			log.Println(m...)
		}
	}

	o := s.options

	// anything that needs to use the store or nats server should add to
	// this wait group. The nats server waits on this before shutting down.
	var natsWg sync.WaitGroup

	// ====================================
	// Nats server
	// ====================================
	if s.natsServer != nil {
		g.Add(func() error {
			s.natsServer.WaitForShutdown()
			logLS("LS: Exited: nats server")
			return errors.New("NATS server stopped")
		}, func(err error) {
			go func() {
				natsWg.Wait()
				s.natsServer.Shutdown()
				logLS("LS: Shutdown: nats server")
			}()
		})
	}

	// ====================================
	// Store
	// ====================================
	nodeStore, err := store.NewStore(store.Params{
		File: o.StoreFile,
		Nc:   s.nc,
		ID:   o.ID,
	})
	if err != nil {
		s.cleanup()
		return fmt.Errorf("Error creating store: %v", err)
	}

	if o.ResetStore {
		if err := nodeStore.Reset(); err != nil {
			s.cleanup()
			return fmt.Errorf("Error resetting store: %v", err)
		}
	}

	storeWaitCtx, storeWaitCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer storeWaitCancel()

	natsWg.Add(1)
	g.Add(func() error {
		defer natsWg.Done()
		err := nodeStore.Run()
		logLS("LS: Exited: store")
		return err
	}, func(err error) {
		// run in goroutine else Stop blocking will block everything else
		go func() {
			storeWaitCancel()
			nodeStore.Stop(err)
			logLS("LS: Shutdown: store")
		}()
	})

	// ====================================
	// HTTP API
	// ====================================
	natsWg.Add(1)
	g.Add(func() error {
		defer natsWg.Done()
		err := s.httpAPI.Start()
		logLS("LS: Exited: http api")
		return err
	}, func(err error) {
		s.httpAPI.Stop(err)
		logLS("LS: Shutdown: http api")
	})

	// Give us a way to stop the server
	// and signal to waiters we have started
	chShutdown := make(chan struct{})
	chStarted := make(chan struct{})
	g.Add(func() error {
		err := nodeStore.WaitStart(storeWaitCtx)
		if err != nil {
			logLS("LS: Exited: server stopper, timeout waiting for store")
			return err
		}

		close(chStarted)

		select {
		case <-s.chStop:
			logLS("LS: Exited: stop handler")
			return ErrServerStopped
		case <-chShutdown:
			logLS("LS: Exited: stop handler")
			return nil
		}
	}, func(_ error) {
		close(chShutdown)
		logLS("LS: Shutdown: stop handler")
	})

	chRunError := make(chan error)

	go func() {
		chRunError <- g.Run()
	}()

	var retErr error
	// waiters are only released once the store is accepting requests
	var chWaitStart chan struct{}

done:
	for {
		select {
		case <-chStarted:
			chWaitStart = s.chWaitStart
			chStarted = nil
		case <-chWaitStart:
			// No-op, reading channel is enough to unblock wait
		case retErr = <-chRunError:
			break done
		}
	}

	s.nc.Close()

	return retErr
}

// cleanup releases resources acquired in NewServer when Run fails before
// the run group is started
func (s *Server) cleanup() {
	s.httpAPI.Stop(nil)
	s.nc.Close()
	s.shutdownNats()
}

// Stop server
func (s *Server) Stop(_ error) {
	close(s.chStop)
}

// WaitStart waits for server to start. Clients should wait for this
// to complete before trying to fetch nodes, etc.
func (s *Server) WaitStart(ctx context.Context) error {
	waitDone := make(chan struct{})

	go func() {
		// the following will block until the main server select
		// loop has seen the store start
		select {
		case s.chWaitStart <- struct{}{}:
			close(waitDone)
		case <-ctx.Done():
		}
	}()

	select {
	case <-ctx.Done():
		return errors.New("Server wait timeout or canceled")
	case <-waitDone:
		// all is well
		return nil
	}
}
