// Package logger records what a handler wrote so that access logs can report it.
package logger

import "net/http"

// ResponseLogger wraps an http.ResponseWriter and remembers the status code and
// the number of body bytes written.
type ResponseLogger struct {
	w       http.ResponseWriter
	status  int
	written int
}

func New(w http.ResponseWriter) *ResponseLogger {
	return &ResponseLogger{w: w, status: http.StatusOK}
}

func (l *ResponseLogger) WriteHeader(code int) {
	l.status = code
	l.w.WriteHeader(code)
}

func (l *ResponseLogger) Write(b []byte) (int, error) {
	n, err := l.w.Write(b)
	l.written += n
	return n, err
}

func (l *ResponseLogger) Header() http.Header {
	return l.w.Header()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (l *ResponseLogger) Unwrap() http.ResponseWriter {
	return l.w
}

func (l *ResponseLogger) Status() int {
	return l.status
}

func (l *ResponseLogger) Written() int {
	return l.written
}
