// Package line talks to the LINE Messaging API through the official SDK:
// push and reply of text messages and profile lookups.
package line

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/jobmatch/internal/reliability/retry"
)

// maxMessages is the API limit of messages per push or reply call.
const maxMessages = 5

// Client implements domain.MessagingTransport and domain.ChatProfileSource
// over the LINE Messaging API.
type Client struct {
	api     *messaging_api.MessagingApiAPI
	breaker *circuitbreaker.CircuitBreaker
	retry   *retry.Config
	logger  *slog.Logger
}

// NewClient creates a new LINE client
func NewClient(baseURL, channelToken string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	api, err := messaging_api.NewMessagingApiAPI(channelToken,
		messaging_api.WithEndpoint(baseURL),
		messaging_api.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("create line messaging client: %w", err)
	}

	breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("line circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &Client{
		api:     api,
		breaker: breaker,
		retry:   retry.DefaultConfig(),
		logger:  logger,
	}, nil
}

// APIError is a non-2xx answer of the messaging API.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line api status %d: %v", e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Push sends texts to a user, in batches of five. Each batch carries its
// own retry key so a retried batch is delivered once.
func (c *Client) Push(ctx context.Context, to string, texts ...string) error {
	if to == "" {
		return errors.New("line push: empty recipient")
	}
	for start := 0; start < len(texts); start += maxMessages {
		end := min(start+maxMessages, len(texts))
		req := &messaging_api.PushMessageRequest{To: to, Messages: toMessages(texts[start:end])}
		retryKey := uuid.NewString()
		err := c.send(ctx, "push", func() (*http.Response, error) {
			res, _, err := c.api.PushMessageWithHttpInfo(req, retryKey)
			if err != nil && res != nil && res.StatusCode == http.StatusConflict {
				// an earlier attempt with this retry key was accepted
				res.Body.Close()
				return nil, nil
			}
			return res, err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Reply answers a webhook event. A reply token is single use, so at most
// five texts are sent and the rest is dropped.
func (c *Client) Reply(ctx context.Context, replyToken string, texts ...string) error {
	if replyToken == "" {
		return errors.New("line reply: empty reply token")
	}
	if len(texts) > maxMessages {
		c.logger.Warn("truncating line reply", slog.Int("messages", len(texts)))
		texts = texts[:maxMessages]
	}
	req := &messaging_api.ReplyMessageRequest{ReplyToken: replyToken, Messages: toMessages(texts)}
	return c.send(ctx, "reply", func() (*http.Response, error) {
		res, _, err := c.api.ReplyMessageWithHttpInfo(req)
		return res, err
	})
}

// Profile fetches the display name and picture of a user who follows the
// channel.
func (c *Client) Profile(ctx context.Context, userID string) (*domain.ChatProfile, error) {
	if userID == "" {
		return nil, errors.New("line profile: empty user id")
	}
	var profile *messaging_api.UserProfileResponse
	err := c.send(ctx, "profile", func() (*http.Response, error) {
		res, body, err := c.api.GetProfileWithHttpInfo(userID)
		profile = body
		return res, err
	})
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, domain.NotFoundf("line profile %s", userID)
	}
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errors.New("line profile: empty response")
	}
	return &domain.ChatProfile{
		UserID:      userID,
		DisplayName: profile.DisplayName,
		PictureURL:  profile.PictureUrl,
	}, nil
}

func (c *Client) send(ctx context.Context, op string, call func() (*http.Response, error)) error {
	_, err := retry.Do(ctx, c.retry, c.logger, "line_"+op, func(ctx context.Context) (struct{}, error) {
		err := c.breaker.Execute(func() error {
			res, err := call()
			if err != nil && res != nil {
				res.Body.Close()
				return &APIError{StatusCode: res.StatusCode, Err: err}
			}
			return err
		})
		if errors.Is(err, circuitbreaker.ErrOpen) || isPermanent(err) {
			return struct{}{}, retry.Permanent(err)
		}
		return struct{}{}, err
	})
	return err
}

// isPermanent reports client errors that a retry cannot fix. 429 is retried.
func isPermanent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
}

func toMessages(texts []string) []messaging_api.MessageInterface {
	out := make([]messaging_api.MessageInterface, 0, len(texts))
	for _, t := range texts {
		out = append(out, messaging_api.TextMessage{Text: t})
	}
	return out
}
