package ports

import "github.com/wrap-near/guest-relayer/pkg/near"

type LiveStore interface {
	Nonces() NonceStore
	Close()
}

// NonceStore shares access-key nonces between signers. With a shared
// backend, relayer replicas signing with the same key stay in sync.
type NonceStore interface {
	near.NonceCache
}
