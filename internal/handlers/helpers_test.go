package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"event-waitlist/internal/middleware"
)

type testServer struct {
	router       http.Handler
	waitingList  *MockWaitingListService
	availability *MockAvailabilityService
	allocator    *MockOfferAllocator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		waitingList:  new(MockWaitingListService),
		availability: new(MockAvailabilityService),
		allocator:    new(MockOfferAllocator),
	}
	ts.router = NewRouter(RouterConfig{
		Events:      NewEventHandler(ts.waitingList, ts.availability, ts.allocator),
		WaitingList: NewWaitingListHandler(ts.waitingList),
		Health:      NewHealthHandler("event-waitlist-test", nil),
		CORS:        middleware.DefaultCORSConfig(),
	})

	t.Cleanup(func() {
		ts.waitingList.AssertExpectations(t)
		ts.availability.AssertExpectations(t)
		ts.allocator.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}
