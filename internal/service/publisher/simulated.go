package publisher

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/internal/models"
)

// Simulated stands in for a real network integration: it takes network-like
// latency, fails a configurable fraction of attempts, and fabricates post IDs
// and engagement metrics. Real integrations implement Publisher the same way.
type Simulated struct {
	platform    models.Platform
	logger      *zap.Logger
	latency     time.Duration
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// SimulatedOption tunes a simulated publisher.
type SimulatedOption func(*Simulated)

// WithLatency sets the fake network delay per attempt.
func WithLatency(d time.Duration) SimulatedOption {
	return func(s *Simulated) {
		s.latency = d
	}
}

// WithFailureRate sets the fraction of attempts that fail, in [0, 1].
func WithFailureRate(rate float64) SimulatedOption {
	return func(s *Simulated) {
		s.failureRate = rate
	}
}

// WithSeed makes outcomes reproducible.
func WithSeed(seed int64) SimulatedOption {
	return func(s *Simulated) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

func NewSimulated(platform models.Platform, logger *zap.Logger, options ...SimulatedOption) *Simulated {
	s := &Simulated{
		platform:    platform,
		logger:      logger,
		latency:     time.Second,
		failureRate: 0.1,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Simulated) PlatformName() models.Platform {
	return s.platform
}

func (s *Simulated) Publish(ctx context.Context, content Content) (*Result, error) {
	// Simulate the network round trip, honoring cancellation and deadline.
	timer := time.NewTimer(s.jitteredLatency())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if s.roll() < s.failureRate {
		return &Result{
			Success: false,
			Error:   fmt.Errorf("%s rejected the post", s.platform),
		}, nil
	}

	now := time.Now().UTC()
	result := &Result{
		Success:     true,
		PostID:      fmt.Sprintf("%s_%s", s.platform, uuid.NewString()),
		PublishedAt: now,
		Metrics: map[string]interface{}{
			"impressions": 100 + s.intn(5000),
			"engagement":  s.intn(300),
			"likes":       s.intn(200),
			"shares":      s.intn(50),
			"comments":    s.intn(30),
		},
	}

	s.logger.Debug("Simulated publish succeeded",
		zap.String("platform", string(s.platform)),
		zap.Uint("content_id", content.ContentID),
		zap.String("post_id", result.PostID))

	return result, nil
}

func (s *Simulated) jitteredLatency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latency <= 0 {
		return 0
	}
	return s.latency/2 + time.Duration(s.rng.Int63n(int64(s.latency)))
}

func (s *Simulated) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Simulated) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
