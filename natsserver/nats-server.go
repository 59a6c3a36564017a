package natsserver

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// RandomPort can be used for Port to let the server pick a free port
const RandomPort = server.RANDOM_PORT

// Options for starting the nats server
type Options struct {
	// Host to listen on, blank listens on all interfaces
	Host string
	Port int
	// HTTPPort is the monitoring port, 0 disables monitoring
	HTTPPort   int
	Auth       string
	TLSCert    string
	TLSKey     string
	TLSTimeout float64
}

// NewServer creates a nats server instance. The caller starts the server
// with Start and waits for it with ReadyForConnections.
func NewServer(o Options) (*server.Server, error) {
	opts := server.Options{
		Host:          o.Host,
		Port:          o.Port,
		HTTPPort:      o.HTTPPort,
		Authorization: o.Auth,
		NoSigs:        true,
	}

	if o.TLSCert != "" && o.TLSKey != "" {
		log.Println("Setting up NATS TLS ...")
		opts.TLS = true
		opts.TLSCert = o.TLSCert
		opts.TLSKey = o.TLSKey
		opts.TLSTimeout = o.TLSTimeout

		tc := server.TLSConfigOpts{
			CertFile: opts.TLSCert,
			KeyFile:  opts.TLSKey,
		}

		var err error
		opts.TLSConfig, err = server.GenTLSConfig(&tc)
		if err != nil {
			return nil, fmt.Errorf("Error setting up TLS: %v", err)
		}
	}

	natsServer, err := server.NewServer(&opts)
	if err != nil {
		return nil, fmt.Errorf("Error creating nats server: %v", err)
	}

	authEnabled := "no"
	if o.Auth != "" {
		authEnabled = "yes"
	}

	log.Printf("NATS server, port: %v, http port: %v, auth enabled: %v\n",
		o.Port, o.HTTPPort, authEnabled)

	return natsServer, nil
}

// Start starts the server and waits until it accepts connections
func Start(s *server.Server, timeout time.Duration) error {
	go s.Start()

	if !s.ReadyForConnections(timeout) {
		return fmt.Errorf("NATS server not ready after %v", timeout)
	}

	return nil
}
