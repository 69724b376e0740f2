package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campusmarket/internal/auth"
	"campusmarket/internal/transaction"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func setupRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(f.svc)

	r.POST("/api/wallet/pay", auth.OptionalAuth(testSecret), h.Pay)
	g := r.Group("/api/wallet", auth.AuthMiddleware(testSecret))
	g.GET("/get", h.Get)
	g.GET("/stream", h.Stream)
	g.POST("/cash-in", h.CashIn)
	g.POST("/cash-out", h.CashOut)
	return r
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(userID, userID+"@up.edu.ph", auth.RoleMember, testSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

func jsonRequest(t *testing.T, method, path, userID, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandler_Pay(t *testing.T) {
	t.Run("missing amount is 400 even without a session", func(t *testing.T) {
		f := newFixture()
		w := httptest.NewRecorder()
		setupRouter(f).ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/wallet/pay", "", `{"transactionId":"tx-1"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeError(t, w)["code"])
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newFixture()
		w := httptest.NewRecorder()
		setupRouter(f).ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/wallet/pay", "buyer-1", `{"amount":`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no session", func(t *testing.T) {
		f := newFixture()
		w := httptest.NewRecorder()
		setupRouter(f).ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/wallet/pay", "", `{"transactionId":"tx-1","amount":150}`))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthenticated", decodeError(t, w)["code"])
	})

	t.Run("not the buyer", func(t *testing.T) {
		f := newFixture()
		f.txs.On("GetByID", mock.Anything, "tx-1").Return(acceptedView(), nil)

		w := httptest.NewRecorder()
		setupRouter(f).ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/wallet/pay", "seller-1", `{"transactionId":"tx-1","amount":150}`))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		f := newFixture()
		f.txs.On("GetByID", mock.Anything, "tx-1").Return(acceptedView(), nil)
		f.repo.On("GetWallet", mock.Anything, "buyer-1").Return(wallet("20"), nil)

		w := httptest.NewRecorder()
		setupRouter(f).ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/wallet/pay", "buyer-1", `{"transactionId":"tx-1","amount":150}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "insufficient_funds", decodeError(t, w)["code"])
	})

	t.Run("fraction of a centavo", func(t *testing.T) {
		f := newFixture()

		w := httptest.NewRecorder()
		setupRouter(f).ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/wallet/pay", "buyer-1", `{"transactionId":"tx-1","amount":"0.005"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeError(t, w)["code"])
		f.txs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("already paid", func(t *testing.T) {
		f := newFixture()
		f.txs.On("GetByID", mock.Anything, "tx-1").Return(acceptedView(), nil)
		f.repo.On("GetWallet", mock.Anything, "buyer-1").Return(wallet("500"), nil)
		f.repo.On("Pay", mock.Anything, mock.Anything).Return(transaction.ErrStatusConflict)

		w := httptest.NewRecorder()
		setupRouter(f).ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/wallet/pay", "buyer-1", `{"transactionId":"tx-1","amount":150}`))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture()
		f.txs.On("GetByID", mock.Anything, "tx-1").Return(acceptedView(), nil)
		f.repo.On("GetWallet", mock.Anything, "buyer-1").Return(wallet("500"), nil)
		f.repo.On("Pay", mock.Anything, mock.AnythingOfType("wallet.Payment")).Return(nil)

		w := httptest.NewRecorder()
		setupRouter(f).ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/wallet/pay", "buyer-1",
			`{"transactionId":"tx-1","amount":"150.00","deliveryFee":45,"rentDays":2}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	})
}

func TestHandler_Get(t *testing.T) {
	f := newFixture()
	w := &Wallet{ID: "wallet-1", UserID: "buyer-1", CurrentBalance: decimal.NewFromInt(350), EscrowBalance: decimal.NewFromInt(150), Currency: DefaultCurrency}
	f.repo.On("GetOrCreateWallet", mock.Anything, "buyer-1").Return(w, nil)
	f.repo.On("GetTransactions", mock.Anything, "buyer-1", 10, 20).Return([]Entry{}, nil)

	rec := httptest.NewRecorder()
	setupRouter(f).ServeHTTP(rec, jsonRequest(t, http.MethodGet, "/api/wallet/get?limit=10&offset=20", "buyer-1", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance":"350","escrow":"150","currency":"PHP","transactions":[]}`, rec.Body.String())
}

func TestHandler_CashIn(t *testing.T) {
	t.Run("unknown channel", func(t *testing.T) {
		f := newFixture()
		w := httptest.NewRecorder()
		setupRouter(f).ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/wallet/cash-in", "buyer-1", `{"amount":100,"channel":"Paypal"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture()
		entry := &Entry{ID: "e1", WalletID: "wallet-1", Type: EntryCashIn, Amount: decimal.NewFromInt(100), BalanceAfter: decimal.NewFromInt(100)}
		f.repo.On("AddTransaction", mock.Anything, "buyer-1", decimal.NewFromInt(100), EntryCashIn).Return(entry, nil)

		w := httptest.NewRecorder()
		setupRouter(f).ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/wallet/cash-in", "buyer-1", `{"amount":100,"channel":"GCash"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"type":"cash_in"`)
	})
}

// streamRecorder adds the close notification gin's Stream expects.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestHandler_Stream(t *testing.T) {
	f := newFixture()
	w := &Wallet{ID: "wallet-1", UserID: "buyer-1", CurrentBalance: decimal.NewFromInt(80), Currency: DefaultCurrency}
	f.repo.On("GetOrCreateWallet", mock.Anything, "buyer-1").Return(w, nil)
	f.repo.On("GetTransactions", mock.Anything, "buyer-1", 50, 0).Return([]Entry{}, nil)

	// One change event, then the subscription ends.
	f.events.ch <- realtimeEvent()
	close(f.events.ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := jsonRequest(t, http.MethodGet, "/api/wallet/stream", "buyer-1", "").WithContext(ctx)
	rec := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	setupRouter(f).ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:wallet"))
	assert.Contains(t, body, `"balance":"80"`)
	f.repo.AssertNumberOfCalls(t, "GetOrCreateWallet", 2)
}
