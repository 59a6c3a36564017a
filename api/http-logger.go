package api

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// maxLoggedBody limits how much of a request or response body is dumped
const maxLoggedBody = 1024

// HTTPLogger logs api requests along with the request and response bodies
type HTTPLogger struct {
	*log.Logger
}

// NewHTTPLogger returns a http logger that writes to stdout
func NewHTTPLogger(prefix string) *HTTPLogger {
	return &HTTPLogger{
		Logger: log.New(os.Stdout, prefix+": ", log.LstdFlags),
	}
}

// Handler wraps an HTTP handler and logs every request
func (l *HTTPLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqBody, err := io.ReadAll(r.Body)
		if err != nil {
			l.Printf("(%s) \"%s %s\" error reading body: %v", r.RemoteAddr,
				r.Method, r.RequestURI, err)
		}
		r.Body = io.NopCloser(bytes.NewReader(reqBody))

		rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		l.Printf("(%s) \"%s %s\" %d %v -> %s -> %s", r.RemoteAddr, r.Method,
			r.RequestURI, rw.status, time.Since(start).Round(time.Microsecond),
			truncate(reqBody), truncate(rw.buf.Bytes()))
	})
}

func truncate(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}

// recordingWriter keeps the status and a copy of the body written
type recordingWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.buf.Write(b)
	return rw.ResponseWriter.Write(b)
}
