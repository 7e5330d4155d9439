package redis

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

const (
	linkCodePrefix   = "jobmatch:linkcode:"
	linkCodeDigits   = 6
	linkCodeAttempts = 5
)

// LinkCodeStore implements domain.LinkCodeStore on Redis keys with a TTL.
type LinkCodeStore struct {
	rdb *redis.Client
}

// NewLinkCodeStore shares the connection of c.
func NewLinkCodeStore(c *Client) *LinkCodeStore {
	return &LinkCodeStore{rdb: c.rdb}
}

// Issue stores a fresh numeric code for seekerID that expires after ttl.
func (s *LinkCodeStore) Issue(ctx context.Context, seekerID string, ttl time.Duration) (string, error) {
	for i := 0; i < linkCodeAttempts; i++ {
		code, err := newLinkCode()
		if err != nil {
			return "", err
		}
		ok, err := s.rdb.SetNX(ctx, linkCodePrefix+code, seekerID, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("store link code: %w", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", errors.New("store link code: no free code")
}

// Consume returns the seeker id of code and deletes it.
func (s *LinkCodeStore) Consume(ctx context.Context, code string) (string, error) {
	seekerID, err := s.rdb.GetDel(ctx, linkCodePrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.NotFoundf("link code")
	}
	if err != nil {
		return "", fmt.Errorf("consume link code: %w", err)
	}
	return seekerID, nil
}

func newLinkCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate link code: %w", err)
	}
	return fmt.Sprintf("%0*d", linkCodeDigits, n.Int64()), nil
}
