package services

import (
	"context"
	"fmt"
	"time"

	"safecircle/internal/config"
	"safecircle/internal/models"
	"safecircle/internal/utils"
	"safecircle/pkg/cache"
	"safecircle/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// redisPositioning implements Positioning over the device-report model:
// the phone pushes fixes into redis, and consumers wait (bounded) for a
// fresh one, nudging the device over the state stream when the latest
// fix is too old.
type redisPositioning struct {
	cfg    *config.SafetyConfig
	cache  *cache.RedisCache
	stream StateStream
	logger *logger.Logger
	now    func() time.Time
}

func NewRedisPositioning(cfg *config.SafetyConfig, redisCache *cache.RedisCache, stream StateStream, log *logger.Logger) Positioning {
	if stream == nil {
		stream = noopStream{}
	}

	return &redisPositioning{
		cfg:    cfg,
		cache:  redisCache,
		stream: stream,
		logger: log,
		now:    time.Now,
	}
}

func positionKey(userID primitive.ObjectID) string {
	return fmt.Sprintf("%slatest:%s", utils.CachePositionPrefix, userID.Hex())
}

func (p *redisPositioning) ReportPosition(ctx context.Context, userID primitive.ObjectID, position models.Position) error {
	if !utils.IsValidCoordinates(position.Latitude, position.Longitude) {
		return fmt.Errorf("invalid coordinates %f,%f", position.Latitude, position.Longitude)
	}
	if position.Timestamp.IsZero() {
		position.Timestamp = p.now()
	}

	if err := p.cache.Set(ctx, positionKey(userID), position, 2*p.cfg.PositionMaxAge+time.Minute); err != nil {
		return fmt.Errorf("failed to store position fix: %w", err)
	}

	return nil
}

func (p *redisPositioning) GetCurrentPosition(ctx context.Context, userID primitive.ObjectID, timeout time.Duration) (*models.Position, error) {
	if pos := p.freshFix(ctx, userID); pos != nil {
		return pos, nil
	}

	// Ask the device for a fix and poll until one lands or the deadline
	// passes.
	p.stream.SendUserNotification(userID, utils.EventPositionRequest, map[string]interface{}{
		"timeout": timeout.String(),
	})

	deadline := p.now().Add(timeout)
	pollTicker := time.NewTicker(p.cfg.PositionPollEvery)
	defer pollTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		case <-pollTicker.C:
			if pos := p.freshFix(ctx, userID); pos != nil {
				return pos, nil
			}
			if !p.now().Before(deadline) {
				return nil, ErrTimeout
			}
		}
	}
}

// freshFix returns the latest reported fix if it is within the max age.
func (p *redisPositioning) freshFix(ctx context.Context, userID primitive.ObjectID) *models.Position {
	var pos models.Position
	if err := p.cache.Get(ctx, positionKey(userID), &pos); err != nil {
		return nil
	}
	if pos.Age(p.now()) > p.cfg.PositionMaxAge {
		return nil
	}
	return &pos
}
