package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/config"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/telemetry"
)

var tracer = telemetry.GetTracer("labour/notify")

// PushClient is the HTTP push-provider implementation of Fanout. Sends are
// bounded by the client timeout and never retried synchronously.
type PushClient struct {
	client  *http.Client
	logger  *zap.Logger
	config  *config.Config
	workers int
}

func NewPushClient(logger *zap.Logger, config *config.Config) *PushClient {
	workers := config.FanoutWorkers
	if workers <= 0 {
		workers = 1
	}
	return &PushClient{
		client:  &http.Client{Timeout: config.PushSendTimeout},
		logger:  logger,
		config:  config,
		workers: workers,
	}
}

type pushRequest struct {
	To           string            `json:"to"`
	Notification Notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

func (c *PushClient) SendToOne(ctx context.Context, token string, note Notification) error {
	ctx, span := tracer.Start(ctx, "SendToOne")
	defer span.End()

	payload, err := json.Marshal(pushRequest{To: token, Notification: note, Data: note.Data})
	if err != nil {
		span.RecordError(err)
		return errors.Internal("encoding push payload", err)
	}

	url := c.config.PushAPIBaseURL + "/send"
	span.SetAttributes(
		telemetry.String("http.url", url),
		telemetry.Int("message.size", len(payload)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return errors.Internal("creating push request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.PushAPIKey != "" {
		req.Header.Set("Authorization", "key="+c.config.PushAPIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return errors.Unavailable("executing push request", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close push response body", zap.Error(cerr))
		}
	}()

	span.SetAttributes(telemetry.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		return errors.Unavailable(fmt.Sprintf("push provider returned status %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *PushClient) SendToMany(ctx context.Context, tokens []string, note Notification) []Delivery {
	ctx, span := tracer.Start(ctx, "SendToMany")
	defer span.End()
	span.SetAttributes(telemetry.Int("fanout.tokens", len(tokens)))

	deliveries := make([]Delivery, len(tokens))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				token := tokens[i]
				err := c.SendToOne(ctx, token, note)
				if err != nil {
					c.logger.Warn("push delivery failed",
						zap.String("token", token),
						zap.Error(err))
				}
				deliveries[i] = Delivery{Token: token, Err: err}
			}
		}()
	}

	for i := range tokens {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return deliveries
}
