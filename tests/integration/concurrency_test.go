package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// post fires an authenticated JSON POST and returns only the status code.
// Safe to call from spawned goroutines, unlike the require-based helpers.
func (a *testApp) post(path, token string, body any) int {
	data, err := json.Marshal(body)
	if err != nil {
		return 0
	}
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, bytes.NewReader(data))
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

// Two simultaneous sends that each exceed half the balance must not both
// succeed: the debit is conditional on the row still covering the amount.
func TestIntegration_ConcurrentSendsCannotOverdraw(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := registerUser(t, app, "alice")
	bob := registerUser(t, app, "bob")
	carol := registerUser(t, app, "carol")

	const amount = 8000 // opening balance is 10000, so only one can land

	targets := []testUser{bob, carol}
	codes := make([]int, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target testUser) {
			defer wg.Done()
			codes[i] = app.post("/api/v1/transfers", alice.token, map[string]any{
				"from_account_id": alice.accountID,
				"to_account_id":   target.accountID,
				"amount":          amount,
			})
		}(i, target)
	}
	wg.Wait()

	created, declined := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusPaymentRequired:
			declined++
		}
	}
	assert.Equal(t, 1, created, "exactly one send may succeed")
	assert.Equal(t, 1, declined, "the other must fail with insufficient funds")

	// Money is conserved regardless of which send won.
	total := app.balance(t, alice) + app.balance(t, bob) + app.balance(t, carol)
	assert.Equal(t, int64(3*testOpeningBalance), total)
	assert.Equal(t, int64(testOpeningBalance-amount), app.balance(t, alice))
}

// A pending request resolved twice concurrently must settle exactly once.
func TestIntegration_ConcurrentRespondSettlesOnce(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := registerUser(t, app, "alice")
	bob := registerUser(t, app, "bob")

	resp, body := app.do(t, http.MethodPost, "/api/v1/transfers/request", bob.token, map[string]any{
		"from_account_id": alice.accountID,
		"to_account_id":   bob.accountID,
		"amount":          2000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	transferID := body["data"].(map[string]interface{})["id"].(string)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = app.post("/api/v1/transfers/"+transferID+"/respond", alice.token, map[string]any{
				"approve": true,
			})
		}(i)
	}
	wg.Wait()

	ok, conflict := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	assert.Equal(t, 1, ok, "exactly one response may win")
	assert.Equal(t, 1, conflict, "the loser must see the transfer already settled")

	// The transfer settled exactly once.
	assert.Equal(t, int64(testOpeningBalance-2000), app.balance(t, alice))
	assert.Equal(t, int64(testOpeningBalance+2000), app.balance(t, bob))
}
