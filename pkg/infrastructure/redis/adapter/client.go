package adapter

import (
	"github.com/redis/go-redis/v9"
)

// ClientOptions descreve a conexão com o Redis compartilhado.
type ClientOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(opts ClientOptions) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}
