package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bootcamp-directory/internal/breaker"
)

func TestSend(t *testing.T) {
	var received message
	var gotToken, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@devcamper.io", server.URL+"/", WithHTTPClient(server.Client()))
	err := client.Send(context.Background(), "alice@example.com", "Password reset token", "PUT to http://x/api/v1/resetpassword/abc")
	require.NoError(t, err)

	assert.Equal(t, "test-token", gotToken)
	assert.Equal(t, "/email", gotPath)
	assert.Equal(t, "alice@example.com", received.To)
	assert.Equal(t, "noreply@devcamper.io", received.From)
	assert.Equal(t, "Password reset token", received.Subject)
	assert.Contains(t, received.TextBody, "/api/v1/resetpassword/abc")
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@devcamper.io", "http://unused")
	assert.ErrorIs(t, client.Send(context.Background(), "a@b.c", "s", "b"), ErrNotConfigured)
}

func TestSendClientErrorDoesNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	cfg := breaker.DefaultConfig("mailer-test")
	cfg.MinRequests = 1
	client := NewClient("tok", "from@x.io", server.URL, WithBreaker(cfg, nil))

	for i := 0; i < 3; i++ {
		err := client.Send(context.Background(), "a@b.c", "s", "b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 422")
	}
}

func TestSendServerErrorsOpenBreaker(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := breaker.DefaultConfig("mailer-test")
	cfg.MinRequests = 2
	client := NewClient("tok", "from@x.io", server.URL, WithBreaker(cfg, nil))

	for i := 0; i < 2; i++ {
		require.Error(t, client.Send(context.Background(), "a@b.c", "s", "b"))
	}
	err := client.Send(context.Background(), "a@b.c", "s", "b")
	assert.ErrorIs(t, err, breaker.ErrOpen)
	assert.Equal(t, 2, calls)
}
