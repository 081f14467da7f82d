package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		Endpoint:    srv.URL,
		AccessToken: "token-123",
		HTTPClient:  srv.Client(),
	}), srv
}

func TestDo_DecodesData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "token-123", r.Header.Get(accessTokenHeader))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "query { shop { name } }", req.Query)
		assert.EqualValues(t, 3, req.Variables["first"])

		w.Write([]byte(`{"data":{"shop":{"name":"Green Basket"}}}`))
	})

	var out struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	err := client.Do(context.Background(), "query { shop { name } }", map[string]any{"first": 3}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Green Basket", out.Shop.Name)
}

func TestDo_GraphQLErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"Field 'x' doesn't exist"}]}`))
	})

	var out map[string]any
	err := client.Do(context.Background(), "query", nil, &out)

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Contains(t, err.Error(), "Field 'x' doesn't exist")
}

func TestDo_ServerErrorIsTransport(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	var out map[string]any
	err := client.Do(context.Background(), "query", nil, &out)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestDo_ClientErrorIsBadResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	var out map[string]any
	err := client.Do(context.Background(), "query", nil, &out)
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestDo_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	})

	var out map[string]any
	err := client.Do(context.Background(), "query", nil, &out)
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestDo_NullData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null}`))
	})

	var out map[string]any
	err := client.Do(context.Background(), "query", nil, &out)
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestDo_BreakerOpensAfterTransportFailures(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	var out map[string]any
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, client.Do(context.Background(), "query", nil, &out), ErrTransport)
	}

	err := client.Do(context.Background(), "query", nil, &out)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, int32(5), hits.Load(), "open breaker must not reach the server")
}

func TestDo_QueryErrorsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	var out map[string]any
	for i := 0; i < 7; i++ {
		require.ErrorIs(t, client.Do(context.Background(), "query", nil, &out), ErrBadResponse)
	}
	assert.Equal(t, int32(7), hits.Load())
}

func TestDo_CancelledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]any
	err := client.Do(ctx, "query", nil, &out)
	assert.ErrorIs(t, err, ErrTransport)
}
