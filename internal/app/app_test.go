package app

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-inspector/internal/config"
	"solana-wallet-inspector/internal/solana/stub"
)

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout:    5 * time.Second,
		RateLimitAttempts: 2,
		RateLimitDelay:    time.Millisecond,
	}
}

func TestNewStores_MemoryWhenNoDSN(t *testing.T) {
	stores, cleanup, err := NewStores(context.Background(), testConfig(), log.New(io.Discard, "", 0))
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, stores.Metadata)
	assert.NotNil(t, stores.Recent)
	assert.NotNil(t, stores.Archive)
}

func TestAPIServer_ServesTrace(t *testing.T) {
	client := stub.NewRPCClient()
	w0, w1 := stub.Address(1), stub.Address(2)
	client.AddTransaction(stub.Tx("sig", 1_700_000_000, stub.SystemTransfer(w0, w1, 1_000_000_000)), w0)

	a := New(testConfig(), client, nil, log.New(io.Discard, "", 0))
	srv := httptest.NewServer(a.APIServer().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/trace?address=" + w0 + "&depth=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Run-ID"))

	var body struct {
		Result []map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Result, 1)
	assert.Equal(t, w1, body.Result[0]["to"])

	runs, err := a.Stores.Archive.ListRunsByOrigin(context.Background(), w0, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestReportGenerator_AllSections(t *testing.T) {
	client := stub.NewRPCClient()
	w0 := stub.Address(1)

	a := New(testConfig(), client, nil, log.New(io.Discard, "", 0))
	report, err := a.ReportGenerator().Generate(context.Background(), w0, 1)
	require.NoError(t, err)

	assert.True(t, report.Complete(), "section errors: %v", report.SectionErrors)
	assert.NotNil(t, report.Balances)
	assert.NotNil(t, report.Memecoins)
	assert.NotNil(t, report.Exchange)
	require.NotNil(t, report.Cluster)
	assert.Equal(t, []string{w0}, report.Cluster.Addresses())
}
