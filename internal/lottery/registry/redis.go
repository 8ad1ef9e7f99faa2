package registry

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "lottery:agencies:pending"

// Redis guarda o conjunto de agências pendentes em um set do Redis, permitindo
// que múltiplas instâncias do servidor compartilhem a mesma barreira.
// SADD/SREM/SCARD são atômicos no servidor Redis, então cada operação mantém a
// mesma garantia de snapshot consistente do backend em memória.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, key: defaultKey}
}

func (r *Redis) MarkActive(ctx context.Context, agency int) error {
	return r.client.SAdd(ctx, r.key, strconv.Itoa(agency)).Err()
}

func (r *Redis) MarkDone(ctx context.Context, agency int) error {
	return r.client.SRem(ctx, r.key, strconv.Itoa(agency)).Err()
}

func (r *Redis) IsDrawReady(ctx context.Context) (bool, error) {
	n, err := r.client.SCard(ctx, r.key).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
