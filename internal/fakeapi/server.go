package fakeapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Fault is one scripted reply. A zero Status with a Delay only slows the
// request down.
type Fault struct {
	Status int
	Detail string
	Delay  time.Duration
}

// Server is an in-process fake of the orchestration service.
//
//	fake := fakeapi.New(fakeapi.WithAPIKey("test-key"))
//	srv := httptest.NewServer(fake)
//	defer srv.Close()
//
//	fake.Script("/health", fakeapi.Fault{Status: 503})
type Server struct {
	router  chi.Router
	apiKey  string
	logger  zerolog.Logger
	latency time.Duration

	mu         sync.Mutex
	faults     map[string][]Fault
	counts     map[string]int
	requestIDs map[string][]string
	bodies     map[string][][]byte
	inFlight   int
	peak       int
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey requires every request to carry key in x-api-key.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithLogger sets the request logger. Defaults to zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLatency delays every request by d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		s.latency = d
	}
}

// New builds a Server serving every orchestration route.
func New(opts ...Option) *Server {
	s := &Server{
		logger:     zerolog.Nop(),
		faults:     make(map[string][]Fault),
		counts:     make(map[string]int),
		requestIDs: make(map[string][]string),
		bodies:     make(map[string][][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(Chain(
		RequestID(),
		Recovery(s.logger),
		Logger(s.logger),
		s.track,
		APIKey(s.apiKey),
		s.inject,
	))
	s.routes(r)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Script queues faults for path. Each request to path consumes one fault
// until the queue is empty; later requests are served normally.
func (s *Server) Script(path string, faults ...Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = append(s.faults[path], faults...)
}

// FailWith queues n replies with status for path.
func (s *Server) FailWith(path string, status, n int) {
	faults := make([]Fault, n)
	for i := range faults {
		faults[i] = Fault{Status: status}
	}
	s.Script(path, faults...)
}

// Count returns the number of requests received for path, faults included.
func (s *Server) Count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[path]
}

// Total returns the number of requests received on all paths.
func (s *Server) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

// RequestIDs returns the X-Request-ID of every request to path, in order.
func (s *Server) RequestIDs(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs[path]...)
}

// Bodies returns the request bodies received for path, in order.
func (s *Server) Bodies(path string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.bodies[path]...)
}

// Peak returns the highest number of concurrent requests observed.
func (s *Server) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Reset clears faults, counters and recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string][]Fault)
	s.counts = make(map[string]int)
	s.requestIDs = make(map[string][]string)
	s.bodies = make(map[string][][]byte)
	s.peak = 0
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		s.mu.Lock()
		s.counts[path]++
		s.requestIDs[path] = append(s.requestIDs[path], RequestIDFromContext(r.Context()))
		s.inFlight++
		s.peak = max(s.peak, s.inFlight)
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			s.inFlight--
			s.mu.Unlock()
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fault, ok := s.nextFault(r.URL.Path)

		delay := s.latency
		if ok {
			delay += fault.Delay
		}
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-r.Context().Done():
				t.Stop()
				return
			}
		}

		if ok && fault.Status != 0 {
			detail := fault.Detail
			if detail == "" {
				detail = http.StatusText(fault.Status)
			}
			writeError(w, fault.Status, detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) nextFault(path string) (Fault, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.faults[path]
	if len(queue) == 0 {
		return Fault{}, false
	}
	s.faults[path] = queue[1:]
	return queue[0], true
}

func (s *Server) record(path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[path] = append(s.bodies[path], body)
}
