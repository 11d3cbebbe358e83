package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerAddr = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	buyerAddr = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

const testCostWei = "10000000000000000"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts ...sale.Option) (*Server, *sale.TokenSale) {
	t.Helper()
	cost, _ := new(big.Int).SetString(testCostWei, 10)
	ts, err := sale.New(ownerAddr, "https://x/", cost, opts...)
	require.NoError(t, err)
	srv, err := NewServer(ts)
	require.NoError(t, err)
	return srv, ts
}

func do(t *testing.T, srv *Server, method, path string, caller common.Address, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != (common.Address{}) {
		req.Header.Set(headerCaller, caller.Hex())
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestGetSale(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/sale", common.Address{}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	info := decode[SaleInfo](t, w)
	assert.Equal(t, ownerAddr.Hex(), info.Owner)
	assert.Equal(t, uint64(10), info.MaxSupply)
	assert.Equal(t, testCostWei, info.Cost)
	assert.Equal(t, "0", info.Held)
}

func TestGetTokenNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/tokens/1", common.Address{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERC721: invalid token ID")
}

func TestGetTokenBadID(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/tokens/abc", common.Address{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBalanceBadAddress(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/balances/0x1234", common.Address{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---------------------------------------------------------------------------
// Buy
// ---------------------------------------------------------------------------

func TestBuyFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": testCostWei})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tok := decode[TokenInfo](t, w)
	assert.Equal(t, uint64(1), tok.TokenID)
	assert.Equal(t, "https://x/1.json", tok.TokenURI)

	w = do(t, srv, http.MethodGet, "/tokens/1", common.Address{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, buyerAddr.Hex(), decode[TokenInfo](t, w).Owner)

	w = do(t, srv, http.MethodGet, "/balances/"+buyerAddr.Hex(), common.Address{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["balance"])
}

func TestBuyIncorrectAmount(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "NFT: incorrect amount", body["error"])
	assert.Equal(t, "incorrect_amount", body["code"])
}

func TestBuySoldOut(t *testing.T) {
	srv, _ := newTestServer(t, sale.WithMaxSupply(1))
	w := do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": testCostWei})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": testCostWei})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBuyRequiresCaller(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/buy", common.Address{}, map[string]string{"value": testCostWei})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBuyFromZeroAddress(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/buy", strings.NewReader(`{"value":"`+testCostWei+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerCaller, common.Address{}.Hex())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "mint to the zero address")
}

func TestBuyBadValue(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": "0.01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func TestAdminRequiresOwner(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/admin/cost", buyerAddr, map[string]string{"value": "1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Ownable: caller is not the owner")
}

func TestAdminSetCostThenBuy(t *testing.T) {
	srv, ts := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/admin/cost", ownerAddr, map[string]string{"value": "20000000000000000"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20000000000000000", ts.Cost().String())

	w = do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": testCostWei})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": "20000000000000000"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminSetBaseURI(t *testing.T) {
	srv, ts := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/admin/base-uri", ownerAddr, map[string]string{"uri": "ipfs://z/"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ipfs://z/", ts.BaseURI())
}

func TestAdminWithdraw(t *testing.T) {
	srv, ts := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/admin/withdraw", ownerAddr, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": testCostWei})
	w = do(t, srv, http.MethodPost, "/admin/withdraw", ownerAddr, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testCostWei, decode[map[string]string](t, w)["amount"])
	assert.Equal(t, 0, ts.Held().Sign())
}

func TestAdminTransferOwner(t *testing.T) {
	srv, ts := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/admin/owner", ownerAddr, map[string]string{"newOwner": "0x0000000000000000000000000000000000000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/admin/owner", ownerAddr, map[string]string{"newOwner": buyerAddr.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, buyerAddr, ts.Owner())
}

// ---------------------------------------------------------------------------
// Events / metrics
// ---------------------------------------------------------------------------

func TestEventsAfter(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": testCostWei})

	w := do(t, srv, http.MethodGet, "/events?after=1", common.Address{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Events []struct {
			Seq  uint64 `json:"seq"`
			Name string `json:"name"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, "Transfer", body.Events[0].Name)
	assert.Equal(t, "Buy", body.Events[1].Name)
	assert.Equal(t, uint64(3), body.Events[1].Seq)
}

func TestEventsEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/events?after=99", common.Address{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[]}`, w.Body.String())
}

type failingSource struct{}

func (failingSource) Events(context.Context, uint64, int) ([]sale.Record, error) {
	return nil, errors.New("db closed")
}

func TestEventsSourceError(t *testing.T) {
	ts, err := sale.New(ownerAddr, "", big.NewInt(1))
	require.NoError(t, err)
	srv, err := NewServer(ts, WithEventSource(failingSource{}))
	require.NoError(t, err)

	w := do(t, srv, http.MethodGet, "/events", common.Address{}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsExposeSaleCounters(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": testCostWei})
	do(t, srv, http.MethodPost, "/buy", buyerAddr, map[string]string{"value": "1"})

	w := do(t, srv, http.MethodGet, "/metrics", common.Address{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "nftsale_sale_tokens_minted_total 1")
	assert.Contains(t, body, `nftsale_sale_failed_calls_total{op="buy",reason="incorrect_amount"} 1`)
	assert.True(t, strings.Contains(body, "nftsale_api_requests_total"))
	assert.Contains(t, body, "# TYPE nftsale_sale_revenue_wei_total counter")
	assert.Contains(t, body, "nftsale_sale_revenue_wei_total 1e+16")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, StatusFor(sale.ErrUnauthorized))
	assert.Equal(t, http.StatusConflict, StatusFor(sale.ErrNothingToWithdraw))
	assert.Equal(t, http.StatusNotFound, StatusFor(sale.ErrTokenNotFound))
	assert.Equal(t, http.StatusBadRequest, StatusFor(sale.ErrInvalidCost))
	assert.Equal(t, http.StatusBadRequest, StatusFor(sale.ErrMintToZeroAddress))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("x")))
}

func TestRequestIDEchoed(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/sale", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(headerRequestID))
}
