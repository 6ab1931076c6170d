// Package testutil holds test doubles shared across packages.
package testutil

import (
	"errors"
	"net/http"
	"sync/atomic"
)

// MockRoundTripper returns a canned response or error for every request
type MockRoundTripper struct {
	response *http.Response
	err      error
	calls    atomic.Int32
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.calls.Add(1)
	return m.response, m.err
}

// Calls reports how many requests went through the transport
func (m *MockRoundTripper) Calls() int {
	return int(m.calls.Load())
}

// FailingClient returns an HTTP client whose transport always errors
func FailingClient() (*http.Client, *MockRoundTripper) {
	rt := NewMockRoundTripper(nil, errors.New("connection failed"))
	return &http.Client{Transport: rt}, rt
}

// FCloser simulates a failure when reading a response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}
