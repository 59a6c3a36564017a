package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/beemon/hivenode/natsserver"
)

var testServerOptions = Options{
	StoreFile:    ":memory:",
	NatsPort:     natsserver.RandomPort,
	HTTPPort:     "0",
	NatsHTTPPort: 0,
	ID:           "test",
	AppVersion:   "test",
}

// TestServer starts a server with an in-memory store, random NATS and HTTP
// ports and returns a function to stop it. The server NATS connection is
// available through Nc().
func TestServer() (*Server, func(), error) {
	s, err := NewServer(testServerOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("Error creating hivenode server: %v", err)
	}

	stopped := make(chan struct{})

	go func() {
		err := s.Run()
		if err != nil && err != ErrServerStopped {
			log.Println("Test Server run returned: ", err)
		}
		close(stopped)
	}()

	stop := func() {
		s.Stop(nil)
		<-stopped
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	err = s.WaitStart(ctx)
	cancel()
	if err != nil {
		return nil, stop, fmt.Errorf("Error waiting for test server to start: %v", err)
	}

	return s, stop, nil
}
