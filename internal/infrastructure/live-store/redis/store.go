package redislivestore

import (
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/wrap-near/guest-relayer/internal/core/ports"
)

func NewLiveStore(rdb *redis.Client, numOfRetries int) ports.LiveStore {
	return &redisLiveStore{
		rdb:        rdb,
		nonceStore: NewNonceStore(rdb, numOfRetries),
	}
}

func (s *redisLiveStore) Nonces() ports.NonceStore { return s.nonceStore }

func (s *redisLiveStore) Close() {
	if err := s.rdb.Close(); err != nil {
		log.WithError(err).Warn("failed to close redis client")
	}
}

type redisLiveStore struct {
	rdb        *redis.Client
	nonceStore ports.NonceStore
}
