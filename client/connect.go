package client

import (
	"log"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// ConnectOptions describes how command line tools and other clients connect
// to a hivenode NATS server
type ConnectOptions struct {
	URI       string
	AuthToken string
	// MaxReconnectDelay caps the exponential reconnect backoff. If zero,
	// one minute is used.
	MaxReconnectDelay time.Duration
	Disconnected      func()
	Reconnected       func()
	Closed            func()
}

// reconnectDelay returns an exponential delay with some jitter, capped at
// maxDelay
func reconnectDelay(attempts int, maxDelay time.Duration) time.Duration {
	delay := maxDelay
	// compare in float to avoid overflowing Duration for large attempts
	if secs := math.Exp2(float64(attempts)); secs < maxDelay.Seconds() {
		delay = time.Duration(secs) * time.Second
	}
	// randomize a bit
	return delay + time.Duration(rand.Float32()*1000)*time.Millisecond
}

// Connect opens a NATS connection. The first connection attempt must succeed,
// after that the client reconnects forever with backoff.
func Connect(o ConnectOptions) (*nats.Conn, error) {
	maxDelay := o.MaxReconnectDelay
	if maxDelay == 0 {
		maxDelay = time.Minute
	}

	authEnabled := "no"
	if o.AuthToken != "" {
		authEnabled = "yes"
	}

	opts := []nats.Option{
		nats.Timeout(10 * time.Second),
		nats.DrainTimeout(10 * time.Second),
		nats.PingInterval(2 * time.Minute),
		nats.MaxPingsOutstanding(3),
		nats.MaxReconnects(-1),
		nats.SetCustomDialer(&net.Dialer{
			KeepAlive: -1,
		}),
		nats.CustomReconnectDelay(func(attempts int) time.Duration {
			delay := reconnectDelay(attempts, maxDelay)
			log.Printf("NATS reconnect attempts: %v, delay: %v", attempts, delay)
			return delay
		}),
		nats.Token(o.AuthToken),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			var subject string
			if sub != nil {
				subject = sub.Subject
			}
			log.Printf("NATS Error, sub: %v, err: %s\n", subject, err)
		}),
	}

	if o.Disconnected != nil {
		opts = append(opts, nats.DisconnectErrHandler(func(_ *nats.Conn, _ error) {
			o.Disconnected()
		}))
	}

	if o.Reconnected != nil {
		opts = append(opts, nats.ReconnectHandler(func(_ *nats.Conn) {
			o.Reconnected()
		}))
	}

	if o.Closed != nil {
		opts = append(opts, nats.ClosedHandler(func(_ *nats.Conn) {
			o.Closed()
		}))
	}

	log.Printf("NATS connect to: %v, auth enabled: %v", o.URI, authEnabled)

	nc, err := nats.Connect(o.URI, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %v", o.URI)
	}

	return nc, nil
}
