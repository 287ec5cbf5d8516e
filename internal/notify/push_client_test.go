package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/config"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*PushClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewPushClient(zap.NewNop(), &config.Config{
		PushAPIBaseURL:  server.URL,
		PushAPIKey:      "secret",
		PushSendTimeout: 2 * time.Second,
		FanoutWorkers:   4,
	})
	return client, server
}

func TestSendToOne(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []pushRequest
		auth     string
	)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req pushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		requests = append(requests, req)
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	note := Notification{
		Title: "New job: Roof repair",
		Body:  "Labourers are needed tomorrow.",
		Data:  map[string]string{"job_id": "job-1"},
	}
	require.NoError(t, client.SendToOne(context.Background(), "tok-1", note))

	require.Len(t, requests, 1)
	assert.Equal(t, "tok-1", requests[0].To)
	assert.Equal(t, note.Title, requests[0].Notification.Title)
	assert.Equal(t, "job-1", requests[0].Data["job_id"])
	assert.Equal(t, "key=secret", auth)
}

func TestSendToOneProviderError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.SendToOne(context.Background(), "tok-1", Notification{Title: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnavailable), "got %v", err)
}

func TestSendToMany(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]int{}
	)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req pushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		seen[req.To]++
		mu.Unlock()
		if req.To == "tok-bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	tokens := []string{"tok-1", "tok-2", "tok-bad", "tok-3"}
	deliveries := client.SendToMany(context.Background(), tokens, Notification{Title: "x"})

	require.Len(t, deliveries, len(tokens))
	for i, delivery := range deliveries {
		// Outcomes stay aligned with the input token order.
		assert.Equal(t, tokens[i], delivery.Token)
		if delivery.Token == "tok-bad" {
			assert.Error(t, delivery.Err)
		} else {
			assert.NoError(t, delivery.Err)
		}
	}
	for _, token := range tokens {
		assert.Equal(t, 1, seen[token])
	}
}
