package config

import (
	"context"
	"crimson-backend/internal/utils"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func ConnectRedis(ctx context.Context) (*redis.Client, error) {
	db, err := strconv.Atoi(utils.GetConfigOr("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     utils.GetConfigOr("REDIS_ADDR", "localhost:6379"),
		Password: utils.GetConfig("REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}
