// Package telemetry is the client's logger and counter registry.
// Counters are never exported anywhere but the log.
package telemetry

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger  atomic.Pointer[zerolog.Logger]
	tracing atomic.Bool

	counterLock sync.Mutex
	counters    = map[string]int{}
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	SetOutput(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime})
}

// SetOutput sends log lines to w
func SetOutput(w io.Writer) {
	l := zerolog.New(w).With().Timestamp().Logger()
	logger.Store(&l)
}

func EnableTrace(on bool) {
	tracing.Store(on)
}

func log() *zerolog.Logger {
	return logger.Load()
}

func Log(format string, args ...any) {
	log().Info().Msgf(format, args...)
}

// Trace logs at debug level, only when tracing is enabled
func Trace(format string, args ...any) {
	if tracing.Load() {
		log().Debug().Msgf(format, args...)
	}
}

func Error(err error, format string, args ...any) {
	log().Error().Err(err).Msgf(format, args...)
	Increment("errors", 1)
}

// Request logs an outgoing request with its method, url and request id
func Request(r *http.Request, format string, args ...any) {
	e := log().Info().Str("method", r.Method).Stringer("url", r.URL)
	if id := r.Header.Get("X-Request-ID"); id != "" {
		e = e.Str("request_id", id)
	}
	e.Msgf(format, args...)
}

func Increment(name string, n int) {
	counterLock.Lock()
	counters[name] += n
	counterLock.Unlock()
}

func GetCounter(name string) int {
	counterLock.Lock()
	defer counterLock.Unlock()
	return counters[name]
}

// LogCounters writes every counter as a field of one log line
func LogCounters() {
	counterLock.Lock()
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := zerolog.Dict()
	for _, name := range names {
		fields = fields.Int(name, counters[name])
	}
	counterLock.Unlock()

	if len(names) == 0 {
		log().Info().Msg("no counters were recorded")
		return
	}
	log().Info().Dict("counters", fields).Msg(fmt.Sprintf("%d counters", len(names)))
}
