package httpclient

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
)

// MockTransport is a scriptable http.RoundTripper for tests.
//
// Stubs are matched in registration order; the first match wins. A stub
// registered with StubSequence replays its steps in order and repeats the
// last one once exhausted, which is how retry tests script
// "503, 503, then 200".
type MockTransport struct {
	mu          sync.Mutex
	stubs       []*stub
	defaultStep *step
	requests    []*http.Request
	bodies      [][]byte
	requestHook func(*http.Request)
}

// MockStep is a single scripted reply: either a status/body pair or an error.
type MockStep struct {
	StatusCode int
	Body       string
	Header     http.Header
	Err        error
}

type step struct {
	resp *http.Response
	err  error
}

type stub struct {
	matcher func(*http.Request) bool
	steps   []step
	next    int
}

func (s *stub) take() step {
	st := s.steps[s.next]
	if s.next < len(s.steps)-1 {
		s.next++
	}
	return st
}

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func newStep(ms MockStep) step {
	if ms.Err != nil {
		return step{err: ms.Err}
	}
	header := ms.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	return step{resp: &http.Response{
		StatusCode:    ms.StatusCode,
		Status:        http.StatusText(ms.StatusCode),
		Header:        header,
		Body:          io.NopCloser(bytes.NewBufferString(ms.Body)),
		ContentLength: int64(len(ms.Body)),
	}}
}

// StubResponse answers every unmatched request with the given response.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	st := newStep(MockStep{StatusCode: statusCode, Body: body})
	m.mu.Lock()
	m.defaultStep = &st
	m.mu.Unlock()
	return m
}

// StubError answers every unmatched request with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	m.defaultStep = &step{err: err}
	m.mu.Unlock()
	return m
}

// StubPath answers requests for path with the given response.
func (m *MockTransport) StubPath(path string, statusCode int, body string) *MockTransport {
	return m.StubFunc(matchPath(path), statusCode, body)
}

// StubFunc answers requests matching the predicate with the given response.
func (m *MockTransport) StubFunc(
	matcher func(*http.Request) bool,
	statusCode int,
	body string,
) *MockTransport {
	return m.StubSequence(matcher, MockStep{StatusCode: statusCode, Body: body})
}

// StubFuncError answers requests matching the predicate with err.
func (m *MockTransport) StubFuncError(matcher func(*http.Request) bool, err error) *MockTransport {
	return m.StubSequence(matcher, MockStep{Err: err})
}

// StubSequence answers successive matching requests with successive steps.
// The last step repeats once the sequence is exhausted.
func (m *MockTransport) StubSequence(matcher func(*http.Request) bool, steps ...MockStep) *MockTransport {
	if len(steps) == 0 {
		return m
	}
	s := &stub{matcher: matcher, steps: make([]step, 0, len(steps))}
	for _, ms := range steps {
		s.steps = append(s.steps, newStep(ms))
	}
	m.mu.Lock()
	m.stubs = append(m.stubs, s)
	m.mu.Unlock()
	return m
}

// OnRequest sets a hook called for every request before it is answered.
// The hook runs outside the transport lock and may block.
func (m *MockTransport) OnRequest(fn func(*http.Request)) *MockTransport {
	m.mu.Lock()
	m.requestHook = fn
	m.mu.Unlock()
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.bodies = append(m.bodies, body)
	hook := m.requestHook
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.stubs {
		if s.matcher(req) {
			return s.take().reply(req)
		}
	}
	if m.defaultStep != nil {
		return m.defaultStep.reply(req)
	}

	return nil, errors.New("no stub found for request: " + req.Method + " " + req.URL.String())
}

func (s step) reply(req *http.Request) (*http.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	resp := cloneResponse(s.resp)
	resp.Request = req
	return resp, nil
}

// Requests returns all requests seen so far.
func (m *MockTransport) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request{}, m.requests...)
}

// RequestBodies returns the bodies of all requests seen so far.
func (m *MockTransport) RequestBodies() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte{}, m.bodies...)
}

// RequestCount returns the number of requests seen.
func (m *MockTransport) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil if none.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears recorded requests and stubs.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.bodies = nil
	m.stubs = nil
	m.defaultStep = nil
	m.requestHook = nil
}

func matchPath(path string) func(*http.Request) bool {
	return func(req *http.Request) bool {
		return req.URL.Path == path
	}
}

// cloneResponse copies resp so the stored body can be replayed.
func cloneResponse(resp *http.Response) *http.Response {
	var bodyBytes []byte
	if resp.Body != nil {
		bodyBytes, _ = io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}
	return &http.Response{
		Status:        resp.Status,
		StatusCode:    resp.StatusCode,
		Header:        resp.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(bodyBytes)),
		ContentLength: resp.ContentLength,
	}
}

// WithMockTransport replaces the network with mock. The rest of the chain
// (interceptors, breaker, instrumentation) still runs.
func WithMockTransport(mock *MockTransport) Option {
	return func(cfg *internalConfig) {
		cfg.MockTransport = mock
	}
}
