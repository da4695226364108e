package db_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wrap-near/guest-relayer/internal/core/domain"
	"github.com/wrap-near/guest-relayer/internal/core/ports"
	"github.com/wrap-near/guest-relayer/internal/infrastructure/db"
)

const (
	pubkey  = "ed25519:6j4b6zUaty6fD1awqcGCCU9JYGCWYUgdJhQrzfZhqE25"
	pubkey2 = "ed25519:8hSHprDq2StXwMtNd43wDTXQYsjXcD4MJTXQYsjXcc"
	pubkey3 = "ed25519:AaFBR1ZkK8mF3jD4Kp9yCoDwB7dgf8rQ1e3u8LMWNp4t"
)

func TestService(t *testing.T) {
	tests := []struct {
		name   string
		config db.ServiceConfig
	}{
		{
			name: "repo_manager_with_inmemory_badger_stores",
			config: db.ServiceConfig{
				DataStoreType:   "badger",
				DataStoreConfig: []interface{}{"", nil},
			},
		},
		{
			name: "repo_manager_with_badger_stores",
			config: db.ServiceConfig{
				DataStoreType:   "badger",
				DataStoreConfig: []interface{}{t.TempDir(), nil},
			},
		},
		{
			name: "repo_manager_with_sqlite_stores",
			config: db.ServiceConfig{
				DataStoreType:   "sqlite",
				DataStoreConfig: []interface{}{t.TempDir()},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := db.NewService(tt.config)
			require.NoError(t, err)
			defer svc.Close()

			testGuestRepository(t, svc)
			testAccessKeyRepository(t, svc)
		})
	}
}

func TestServiceInvalidConfig(t *testing.T) {
	fixtures := []struct {
		config      db.ServiceConfig
		expectedErr string
	}{
		{
			config:      db.ServiceConfig{DataStoreType: "postgres"},
			expectedErr: "invalid data store type: postgres",
		},
		{
			config: db.ServiceConfig{
				DataStoreType:   "badger",
				DataStoreConfig: []interface{}{""},
			},
			expectedErr: "failed to create guest store: invalid config",
		},
		{
			config: db.ServiceConfig{
				DataStoreType:   "sqlite",
				DataStoreConfig: []interface{}{1},
			},
			expectedErr: "invalid config",
		},
	}

	for _, f := range fixtures {
		svc, err := db.NewService(f.config)
		require.EqualError(t, err, f.expectedErr)
		require.Nil(t, svc)
	}
}

func testGuestRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_guest_repository", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Guests()

		guest, err := repo.GetGuest(ctx, "alice.wrap.testnet")
		require.ErrorIs(t, err, domain.ErrGuestNotFound)
		require.Nil(t, guest)

		guests, err := repo.ListGuests(ctx)
		require.NoError(t, err)
		require.Empty(t, guests)

		alice := domain.NewGuest()
		_, err = alice.Provision("alice.wrap.testnet", pubkey)
		require.NoError(t, err)
		require.NoError(t, repo.AddOrUpdateGuest(ctx, alice))

		bob := domain.NewGuest()
		_, err = bob.Provision("bob.wrap.testnet", pubkey2)
		require.NoError(t, err)
		_, err = bob.Register()
		require.NoError(t, err)
		_, err = bob.Fund("42")
		require.NoError(t, err)
		require.NoError(t, repo.AddOrUpdateGuest(ctx, bob))

		carol := domain.NewGuest()
		_, err = carol.Provision("carol.wrap.testnet", pubkey3)
		require.NoError(t, err)
		_, err = carol.Fail(errTest)
		require.NoError(t, err)
		require.NoError(t, repo.AddOrUpdateGuest(ctx, carol))

		guest, err = repo.GetGuest(ctx, "bob.wrap.testnet")
		require.NoError(t, err)
		require.NotNil(t, guest)
		require.True(t, guest.IsFunded())
		require.Equal(t, pubkey2, guest.PublicKey)
		require.Equal(t, "42", guest.TokenBalance)
		require.Equal(t, bob.CreatedAt, guest.CreatedAt)

		guests, err = repo.ListGuests(ctx)
		require.NoError(t, err)
		require.Len(t, guests, 3)

		guests, err = repo.GetGuestsByStage(
			ctx, domain.GuestProvisionedStage, domain.GuestRegisteredStage, domain.GuestFundedStage,
		)
		require.NoError(t, err)
		require.ElementsMatch(
			t, []string{"alice.wrap.testnet", "bob.wrap.testnet"}, accountIds(guests),
		)

		guests, err = repo.GetGuestsByStage(ctx, domain.GuestFundedStage)
		require.NoError(t, err)
		require.Equal(t, []string{"bob.wrap.testnet"}, accountIds(guests))

		_, err = alice.Register()
		require.NoError(t, err)
		require.NoError(t, repo.AddOrUpdateGuest(ctx, alice))

		guest, err = repo.GetGuest(ctx, "alice.wrap.testnet")
		require.NoError(t, err)
		require.True(t, guest.IsRegistered())
		require.GreaterOrEqual(t, guest.UpdatedAt, guest.CreatedAt)

		guest, err = repo.GetGuest(ctx, "carol.wrap.testnet")
		require.NoError(t, err)
		require.True(t, guest.IsFailed())
		require.Equal(t, errTest.Error(), guest.FailReason)

		err = repo.AddOrUpdateGuest(ctx, domain.NewGuest())
		require.Error(t, err)
	})
}

func testAccessKeyRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_access_key_repository", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.AccessKeys()

		grant, err := repo.GetGrant(ctx, pubkey)
		require.ErrorIs(t, err, domain.ErrGrantNotFound)
		require.Nil(t, grant)

		methods := []string{"ft_transfer", "upgrade_guest"}
		grants := []domain.AccessKeyGrant{
			domain.NewAccessKeyGrant(pubkey, "wrap.testnet", "wrap.testnet", methods, "100"),
			domain.NewAccessKeyGrant(pubkey2, "wrap.testnet", "wrap.testnet", methods, "100"),
			domain.NewAccessKeyGrant(pubkey3, "guests.wrap.testnet", "wrap.testnet", methods, "100"),
		}
		for _, g := range grants {
			require.NoError(t, repo.AddGrant(ctx, g))
		}

		grant, err = repo.GetGrant(ctx, pubkey2)
		require.NoError(t, err)
		require.Equal(t, "wrap.testnet", grant.AccountId)
		require.Equal(t, methods, grant.MethodNames)
		require.Equal(t, "100", grant.Allowance)
		require.False(t, grant.IsRevoked())

		active, err := repo.ListActiveGrants(ctx)
		require.NoError(t, err)
		require.Len(t, active, 3)

		revokedAt := time.Now().Unix()
		err = repo.RevokeGrants(ctx, []string{pubkey, pubkey2, "ed25519:unknown"}, revokedAt)
		require.NoError(t, err)

		active, err = repo.ListActiveGrants(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		require.Equal(t, pubkey3, active[0].PublicKey)

		grant, err = repo.GetGrant(ctx, pubkey)
		require.NoError(t, err)
		require.True(t, grant.IsRevoked())
		require.Equal(t, revokedAt, grant.RevokedAt)
	})
}

var errTest = errors.New("access key removed")

func accountIds(guests []*domain.Guest) []string {
	ids := make([]string, 0, len(guests))
	for _, g := range guests {
		ids = append(ids, g.AccountId)
	}
	sort.Strings(ids)
	return ids
}
