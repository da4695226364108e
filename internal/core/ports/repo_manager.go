package ports

import "github.com/wrap-near/guest-relayer/internal/core/domain"

type RepoManager interface {
	Guests() domain.GuestRepository
	AccessKeys() domain.AccessKeyRepository
	Close()
}
