package webserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo/tlb"
	"github.com/tonkeeper/tongo/ton"

	"github.com/justbytes/solidity-casino/internal/payout"
	"github.com/justbytes/solidity-casino/internal/raffle"
	"github.com/justbytes/solidity-casino/internal/storage"
	"github.com/justbytes/solidity-casino/internal/vrf"
)

const (
	testFee = uint64(1_000_000)
	addrA   = "0:0000000000000000000000000000000000000000000000000000000000000001"
	addrB   = "0:0000000000000000000000000000000000000000000000000000000000000002"
)

type stubCoordinator struct {
	nextID uint64
}

func (c *stubCoordinator) RequestRandomWords(config vrf.RequestConfig) (uint64, error) {
	c.nextID++
	return c.nextID, nil
}

type fakeStorage struct {
	entries []*storage.EntryRecord
	rounds  []*storage.RoundRecord
}

func (f *fakeStorage) SaveEntry(entry *storage.EntryRecord) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStorage) GetEntriesByAddress(address string) ([]*storage.EntryRecord, error) {
	return f.entries, nil
}

func (f *fakeStorage) SaveRound(round *storage.RoundRecord) error {
	f.rounds = append(f.rounds, round)
	return nil
}

func (f *fakeStorage) GetRecentRounds(limit int) ([]*storage.RoundRecord, error) {
	if limit > len(f.rounds) {
		limit = len(f.rounds)
	}
	return f.rounds[:limit], nil
}

func (f *fakeStorage) GetTotalPaidOut() (uint64, error) {
	return 0, nil
}

func (f *fakeStorage) GetWinCountByAddress(address string) (int64, error) {
	return 0, nil
}

// newTestRouter wires a raffle with a zero interval so upkeep is due as soon
// as a funded entry lands.
func newTestRouter(t *testing.T) (*gin.Engine, *payout.Bank, *fakeStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coordinator := &stubCoordinator{}
	bank := payout.NewBank()
	st := &fakeStorage{}

	engine := raffle.New(raffle.Config{
		EntryFee: tlb.Grams(testFee),
		Interval: 0,
		Request:  vrf.RequestConfig{SubscriptionID: 1, NumWords: 1},
	}, coordinator, bank, nil)

	router := gin.New()
	NewServer(engine, bank, st, NewHub()).RegisterRoutes(router)
	return router, bank, st
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func mustAccount(t *testing.T, raw string) ton.AccountID {
	t.Helper()

	account, err := ton.ParseAccountID(raw)
	require.NoError(t, err)
	return account
}

func TestEnterEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, bank, _ := newTestRouter(t)
		bank.Deposit(mustAccount(t, addrA), tlb.Grams(testFee))

		w := doJSON(t, router, http.MethodPost, "/enter", gin.H{"address": addrA, "amount": testFee})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			State           string `json:"state"`
			Pool            uint64 `json:"pool"`
			NumParticipants int    `json:"num_participants"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "open", resp.State)
		require.Equal(t, testFee, resp.Pool)
		require.Equal(t, 1, resp.NumParticipants)
		require.Equal(t, tlb.Grams(0), bank.BalanceOf(mustAccount(t, addrA)))
	})

	t.Run("unfunded account", func(t *testing.T) {
		router, _, _ := newTestRouter(t)

		w := doJSON(t, router, http.MethodPost, "/enter", gin.H{"address": addrA, "amount": testFee})
		require.Equal(t, http.StatusPaymentRequired, w.Code)
	})

	t.Run("payment below fee is refunded", func(t *testing.T) {
		router, bank, _ := newTestRouter(t)
		bank.Deposit(mustAccount(t, addrA), tlb.Grams(testFee))

		w := doJSON(t, router, http.MethodPost, "/enter", gin.H{"address": addrA, "amount": testFee / 2})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, tlb.Grams(testFee), bank.BalanceOf(mustAccount(t, addrA)))
	})

	t.Run("invalid address", func(t *testing.T) {
		router, _, _ := newTestRouter(t)

		w := doJSON(t, router, http.MethodPost, "/enter", gin.H{"address": "not-an-address", "amount": testFee})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpkeepEndpoints(t *testing.T) {
	router, bank, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/upkeep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"upkeep_needed": false}`, w.Body.String())

	// triggering when not needed reports the live state
	w = doJSON(t, router, http.MethodPost, "/upkeep", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	bank.Deposit(mustAccount(t, addrA), tlb.Grams(testFee))
	w = doJSON(t, router, http.MethodPost, "/enter", gin.H{"address": addrA, "amount": testFee})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/upkeep", nil)
	require.JSONEq(t, `{"upkeep_needed": true}`, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/upkeep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"request_id": 1}`, w.Body.String())

	// entries are closed while calculating
	bank.Deposit(mustAccount(t, addrB), tlb.Grams(testFee))
	w = doJSON(t, router, http.MethodPost, "/enter", gin.H{"address": addrB, "amount": testFee})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, tlb.Grams(testFee), bank.BalanceOf(mustAccount(t, addrB)))
}

func TestStatusEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "open", resp["state"])
	require.NotContains(t, resp, "recent_winner")
}

func TestRoundsEndpoint(t *testing.T) {
	router, _, st := newTestRouter(t)
	st.rounds = []*storage.RoundRecord{
		{Round: 2, Winner: addrA, Prize: 4_000_000},
		{Round: 1, Winner: addrB, Prize: 2_000_000},
	}

	w := doJSON(t, router, http.MethodGet, "/rounds?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Rounds []*storage.RoundRecord `json:"rounds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rounds, 1)
	require.Equal(t, uint64(2), resp.Rounds[0].Round)

	w = doJSON(t, router, http.MethodGet, "/rounds?limit=bogus", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/accounts/"+addrA+"/deposit", gin.H{"amount": uint64(500)})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/accounts/"+addrA, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Address string `json:"address"`
		Balance uint64 `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, addrA, resp.Address)
	require.Equal(t, uint64(500), resp.Balance)
}

func TestReopenEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	// nothing to reopen while the round is open
	w := doJSON(t, router, http.MethodPost, "/admin/reopen", nil)
	require.Equal(t, http.StatusConflict, w.Code)
}
