//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	pgstore "postsapi/internal/adapter/out/storage/postgres"
	"postsapi/internal/seed"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/stretchr/testify/require"
)

type post struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"userId"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Version *int64 `json:"version"`
}

// resetPosts restores the seeded dataset so every test starts from the
// same table contents.
func resetPosts(t *testing.T) {
	t.Helper()

	_, err := pgPool.Exec(testCtx, "TRUNCATE TABLE posts RESTART IDENTITY")
	require.NoError(t, err, "failed to truncate posts")

	st := pgstore.NewPostStorage(pgPool, trmpgx.DefaultCtxGetter)
	trManager := manager.Must(trmpgx.NewDefaultFactory(pgPool))

	n, err := seed.NewLoader(st, trManager).Load(testCtx)
	require.NoError(t, err, "failed to seed posts")
	require.Equal(t, 100, n)
}

func doRequest(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(testCtx, method, server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pgPool.QueryRow(testCtx, query, args...).Scan(&n))
	return n
}

func int64Ptr(v int64) *int64 { return &v }
