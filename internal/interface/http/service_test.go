package httpservice_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wrap-near/guest-relayer/internal/core/application"
	"github.com/wrap-near/guest-relayer/internal/core/domain"
	httpservice "github.com/wrap-near/guest-relayer/internal/interface/http"
	"github.com/wrap-near/guest-relayer/internal/interface/http/middleware"
)

const (
	adminToken = "s3cr3t"
	accountId  = "alice.testnet"
	signature  = "c2lnbmF0dXJl"
)

var signedBody = fmt.Sprintf(
	`{"accountId":"%s","blockNumber":"1000","blockNumberSignature":"%s"}`,
	accountId, signature,
)

func TestHello(t *testing.T) {
	svc := &mockedAppService{}
	svc.On("Hello").Return("Hello guests.dev-1614282578076-7902606")
	server := newTestServer(t, svc, "")

	res, body := doRequest(t, server, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "Hello guests.dev-1614282578076-7902606", body)
	require.NotEmpty(t, res.Header.Get(middleware.RequestIdHeader))
}

func TestHasAccessKey(t *testing.T) {
	expectedReq := application.SignedRequest{
		AccountId:            accountId,
		BlockNumber:          1000,
		BlockNumberSignature: signature,
	}

	fixtures := []struct {
		name           string
		body           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "valid",
			body:           signedBody,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"success":true}`,
		},
		{
			name:           "unauthorized",
			body:           signedBody,
			err:            application.ErrUnauthorized,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "stale block",
			body:           signedBody,
			err:            application.ErrStaleBlock,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "node failure",
			body:           signedBody,
			err:            fmt.Errorf("connection refused"),
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "missing signature",
			body:           `{"accountId":"alice.testnet","blockNumber":1000}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"missing blockNumberSignature"}`,
		},
		{
			name:           "invalid block number",
			body:           `{"accountId":"alice.testnet","blockNumber":"abc","blockNumberSignature":"c2ln"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty body",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"missing body"}`,
		},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			svc := &mockedAppService{}
			svc.On("VerifyAccessKey", mock.Anything, expectedReq).Return(f.err)
			server := newTestServer(t, svc, adminToken)

			res, body := doRequest(t, server, http.MethodPost, "/has-access-key", f.body, "")
			require.Equal(t, f.expectedStatus, res.StatusCode)
			if f.expectedBody != "" {
				require.JSONEq(t, f.expectedBody, body)
			}
		})
	}
}

func TestStorageDeposit(t *testing.T) {
	body := fmt.Sprintf(
		`{"accountId":"%s","blockNumber":1000,"blockNumberSignature":"%s","implicitAccountId":"%s"}`,
		accountId, signature, strings.Repeat("a", 64),
	)
	expectedReq := application.StorageDepositRequest{
		SignedRequest: application.SignedRequest{
			AccountId:            accountId,
			BlockNumber:          1000,
			BlockNumberSignature: signature,
		},
		ImplicitAccountId: strings.Repeat("a", 64),
	}

	t.Run("valid", func(t *testing.T) {
		svc := &mockedAppService{}
		svc.On("StorageDeposit", mock.Anything, expectedReq).Return("txhash", nil)
		server := newTestServer(t, svc, "")

		res, resBody := doRequest(t, server, http.MethodPost, "/storage-deposit", body, "")
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.JSONEq(t, `{"success":true,"result":"txhash"}`, resBody)
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []struct {
			err            error
			expectedStatus int
			expectedBody   string
		}{
			{
				err:            application.ErrUnauthorized,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				err:            fmt.Errorf("%w: not enough balance", application.ErrRegistration),
				expectedStatus: http.StatusForbidden,
				expectedBody:   `{"error":"error registering account"}`,
			},
			{
				err:            fmt.Errorf("boom"),
				expectedStatus: http.StatusForbidden,
			},
		}

		for _, f := range fixtures {
			svc := &mockedAppService{}
			svc.On("StorageDeposit", mock.Anything, expectedReq).Return("", f.err)
			server := newTestServer(t, svc, "")

			res, resBody := doRequest(t, server, http.MethodPost, "/storage-deposit", body, "")
			require.Equal(t, f.expectedStatus, res.StatusCode, f.err.Error())
			if f.expectedBody != "" {
				require.JSONEq(t, f.expectedBody, resBody)
			}
		}
	})
}

func TestAdminRoutes(t *testing.T) {
	publicKey := "ed25519:6E8sCci9badyRkXb3JoRpBj5p8C6Tw41ELDZoiihKEtp"
	addKeyBody := fmt.Sprintf(`{"publicKey":"%s"}`, publicKey)

	t.Run("add key", func(t *testing.T) {
		fixtures := []struct {
			name           string
			token          string
			err            error
			expectedStatus int
			expectedBody   string
		}{
			{
				name:           "valid",
				token:          adminToken,
				expectedStatus: http.StatusOK,
				expectedBody:   `{"success":true,"result":"txhash"}`,
			},
			{
				name:           "missing token",
				expectedStatus: http.StatusUnauthorized,
				expectedBody:   `{"error":"invalid admin token"}`,
			},
			{
				name:           "wrong token",
				token:          "wrong",
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "duplicate key",
				token:          adminToken,
				err:            application.ErrKeyAlreadyAdded,
				expectedStatus: http.StatusForbidden,
				expectedBody:   `{"error":"key is already added"}`,
			},
			{
				name:           "other failure",
				token:          adminToken,
				err:            fmt.Errorf("not enough balance"),
				expectedStatus: http.StatusInternalServerError,
			},
		}

		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				svc := &mockedAppService{}
				txHash := ""
				if f.err == nil {
					txHash = "txhash"
				}
				svc.On("AddKey", mock.Anything, publicKey).Return(txHash, f.err)
				server := newTestServer(t, svc, adminToken)

				res, body := doRequest(t, server, http.MethodPost, "/add-key", addKeyBody, f.token)
				require.Equal(t, f.expectedStatus, res.StatusCode)
				if f.expectedBody != "" {
					require.JSONEq(t, f.expectedBody, body)
				}
				if f.token != adminToken {
					svc.AssertNumberOfCalls(t, "AddKey", 0)
				}
			})
		}
	})

	t.Run("add key without admin token", func(t *testing.T) {
		svc := &mockedAppService{}
		svc.On("AddKey", mock.Anything, publicKey).Return("txhash", nil)
		server := newTestServer(t, svc, "")

		res, _ := doRequest(t, server, http.MethodPost, "/add-key", addKeyBody, "")
		require.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("delete access keys", func(t *testing.T) {
		svc := &mockedAppService{}
		svc.On("DeleteAccessKeys", mock.Anything).Return([]string{"tx1", "tx2"}, nil)
		server := newTestServer(t, svc, adminToken)

		res, body := doRequest(t, server, http.MethodGet, "/delete-access-keys", "", adminToken)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.JSONEq(t, `{"success":true,"result":["tx1","tx2"]}`, body)

		res, body = doRequest(t, server, http.MethodGet, "/metrics", "", "")
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Contains(t, body, `relayer_txs_total{kind="delete_key"} 2`)
	})

	t.Run("delete access keys failure", func(t *testing.T) {
		svc := &mockedAppService{}
		svc.On("DeleteAccessKeys", mock.Anything).
			Return([]string{"tx1"}, fmt.Errorf("invalid nonce"))
		server := newTestServer(t, svc, adminToken)

		res, body := doRequest(t, server, http.MethodGet, "/delete-access-keys", "", adminToken)
		require.Equal(t, http.StatusForbidden, res.StatusCode)
		require.JSONEq(t, `{"error":"invalid nonce"}`, body)
	})
}

func TestAddGuest(t *testing.T) {
	guestId := "bob.dev-1614282578076-7902606"
	publicKey := "ed25519:6E8sCci9badyRkXb3JoRpBj5p8C6Tw41ELDZoiihKEtp"
	body := fmt.Sprintf(`{"account_id":"%s","public_key":"%s"}`, guestId, publicKey)

	fixtures := []struct {
		name           string
		body           string
		result         *application.AddGuestResult
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "valid",
			body:           body,
			result:         &application.AddGuestResult{AddGuest: "", AddKey: "txhash"},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"add_guest":"","addKey":"txhash"}`,
		},
		{
			name:           "already added",
			body:           body,
			err:            application.ErrKeyAlreadyAdded,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "invalid account",
			body:           body,
			err:            fmt.Errorf("%w: bad username", application.ErrInvalidRequest),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing public key",
			body:           fmt.Sprintf(`{"account_id":"%s"}`, guestId),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"missing public_key"}`,
		},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			svc := &mockedAppService{}
			svc.On("AddGuest", mock.Anything, guestId, publicKey).Return(f.result, f.err)
			server := newTestServer(t, svc, adminToken)

			res, resBody := doRequest(t, server, http.MethodPost, "/add-guest", f.body, "")
			require.Equal(t, f.expectedStatus, res.StatusCode)
			if f.expectedBody != "" {
				require.JSONEq(t, f.expectedBody, resBody)
			}
		})
	}
}

func TestGetGuest(t *testing.T) {
	guestId := "bob.dev-1614282578076-7902606"

	t.Run("valid", func(t *testing.T) {
		guest := domain.NewGuest()
		_, err := guest.Provision(guestId, "ed25519:6E8sCci9badyRkXb3JoRpBj5p8C6Tw41ELDZoiihKEtp")
		require.NoError(t, err)

		svc := &mockedAppService{}
		svc.On("GuestStatus", mock.Anything, guestId).Return(guest, nil)
		server := newTestServer(t, svc, "")

		res, body := doRequest(t, server, http.MethodGet, "/guests/"+guestId, "", "")
		require.Equal(t, http.StatusOK, res.StatusCode)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(body), &got))
		require.Equal(t, guestId, got["account_id"])
		require.Equal(t, domain.GuestProvisionedStage.String(), got["stage"])
		require.Equal(t, false, got["failed"])
	})

	t.Run("not found", func(t *testing.T) {
		svc := &mockedAppService{}
		svc.On("GuestStatus", mock.Anything, guestId).Return(nil, domain.ErrGuestNotFound)
		server := newTestServer(t, svc, "")

		res, _ := doRequest(t, server, http.MethodGet, "/guests/"+guestId, "", "")
		require.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

func TestGetInfo(t *testing.T) {
	svc := &mockedAppService{}
	svc.On("GetInfo", mock.Anything).Return(&application.ServiceInfo{
		ContractName:    "dev-1614282578076-7902606",
		GuestsAccountId: "guests.dev-1614282578076-7902606",
		ChangeMethods:   application.DefaultChangeMethods,
		GuestAllowance:  "100000000000000000000000",
		BlockHeight:     1000,
	}, nil)
	server := newTestServer(t, svc, "")

	res, body := doRequest(t, server, http.MethodGet, "/info", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Equal(t, "guests.dev-1614282578076-7902606", got["guests_account_id"])
	require.Equal(t, float64(1000), got["block_height"])
}

func TestCORS(t *testing.T) {
	server := newTestServer(t, &mockedAppService{}, "")

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/storage-deposit", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://berry.cards")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(t, &mockedAppService{}, "")

	res, _ := doRequest(t, server, http.MethodGet, "/unknown", "", "")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func newTestServer(t *testing.T, svc application.Service, token string) *httptest.Server {
	metrics, err := httpservice.NewMetrics()
	require.NoError(t, err)

	server := httptest.NewServer(httpservice.NewRouter(svc, metrics, token))
	t.Cleanup(server.Close)
	return server
}

func doRequest(
	t *testing.T, server *httptest.Server, method, path, body, token string,
) (*http.Response, string) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, server.URL+path, reqBody)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	buf, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, strings.TrimSpace(string(buf))
}

type mockedAppService struct {
	mock.Mock
}

func (m *mockedAppService) Start() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockedAppService) Stop() {
	m.Called()
}

func (m *mockedAppService) Hello() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockedAppService) VerifyAccessKey(
	ctx context.Context, req application.SignedRequest,
) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockedAppService) StorageDeposit(
	ctx context.Context, req application.StorageDepositRequest,
) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockedAppService) AddKey(ctx context.Context, publicKey string) (string, error) {
	args := m.Called(ctx, publicKey)
	return args.String(0), args.Error(1)
}

func (m *mockedAppService) DeleteAccessKeys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)

	var res []string
	if a := args.Get(0); a != nil {
		res = a.([]string)
	}
	return res, args.Error(1)
}

func (m *mockedAppService) AddGuest(
	ctx context.Context, accountId, publicKey string,
) (*application.AddGuestResult, error) {
	args := m.Called(ctx, accountId, publicKey)

	var res *application.AddGuestResult
	if a := args.Get(0); a != nil {
		res = a.(*application.AddGuestResult)
	}
	return res, args.Error(1)
}

func (m *mockedAppService) Bootstrap(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockedAppService) GuestStatus(
	ctx context.Context, accountId string,
) (*domain.Guest, error) {
	args := m.Called(ctx, accountId)

	var res *domain.Guest
	if a := args.Get(0); a != nil {
		res = a.(*domain.Guest)
	}
	return res, args.Error(1)
}

func (m *mockedAppService) SyncGuests(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockedAppService) GetInfo(ctx context.Context) (*application.ServiceInfo, error) {
	args := m.Called(ctx)

	var res *application.ServiceInfo
	if a := args.Get(0); a != nil {
		res = a.(*application.ServiceInfo)
	}
	return res, args.Error(1)
}
