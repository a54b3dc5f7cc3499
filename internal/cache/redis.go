package cache

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

// InitRedis connects the shared client. The snapshot cache is optional, so a
// missing REDIS_URL or an unreachable server leaves Client nil.
func InitRedis(ctx context.Context) {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		log.Println("REDIS_URL not set, skipping Redis connection")
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("failed to connect to Redis, snapshot cache disabled: %v", err)
		return
	}
	Client = client
	log.Println("Connected to Redis")
}
