package httpsource_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/record"
	"github.com/roach88/gridview/internal/remote"
	"github.com/roach88/gridview/internal/source/httpsource"
)

// capture records the last request a test server saw.
type capture struct {
	mu   sync.Mutex
	path string
	q    url.Values
	auth string
}

func (c *capture) record(r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = r.URL.Path
	c.q = r.URL.Query()
	c.auth = r.Header.Get("Authorization")
}

func serve(t *testing.T, status int, body string) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.record(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestList_RequestShape(t *testing.T) {
	srv, seen := serve(t, http.StatusOK, `{"count": 0, "results": []}`)
	client, err := httpsource.New(srv.URL, httpsource.WithToken("s3cret"))
	require.NoError(t, err)

	params := query.ListParams{
		Page:           2,
		PageSize:       50,
		OrderField:     "completed_at",
		OrderDirection: query.Desc,
		IDs:            []string{"4", "9"},
		Include:        []string{"id", "annotators"},
		Filter: query.Filter{}.And(query.Condition{
			Field: "status", Operator: query.OpEqual, Value: record.String("done"),
		}),
	}
	_, err = client.List(context.Background(), "view-7", params)
	require.NoError(t, err)

	assert.Equal(t, "/api/dm/views/view-7/records", seen.path)
	assert.Equal(t, "2", seen.q.Get("page"))
	assert.Equal(t, "50", seen.q.Get("page_size"))
	assert.Equal(t, "-completed_at", seen.q.Get("ordering"))
	assert.Equal(t, "4,9", seen.q.Get("ids"))
	assert.Equal(t, "id,annotators", seen.q.Get("include"))
	assert.JSONEq(t, `[{"field":"status","operator":"equal","value":"done"}]`, seen.q.Get("filters"))
	assert.Equal(t, "Bearer s3cret", seen.auth)
}

func TestList_OmitsEmptyParams(t *testing.T) {
	srv, seen := serve(t, http.StatusOK, `{"count": 0, "results": []}`)
	client, err := httpsource.New(srv.URL)
	require.NoError(t, err)

	_, err = client.List(context.Background(), "tasks", query.ListParams{Page: 1, PageSize: 30})
	require.NoError(t, err)

	for _, k := range []string{"ordering", "ids", "include", "filters"} {
		assert.False(t, seen.q.Has(k), k)
	}
	assert.Empty(t, seen.auth)
}

func TestList_Decode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		opts    []httpsource.Option
		wantIDs []string
		wantN   int
	}{
		{
			name:    "results and count",
			body:    `{"count": 45, "results": [{"id": 1, "title": "a"}, {"id": 2}]}`,
			wantIDs: []string{"1", "2"},
			wantN:   45,
		},
		{
			name:    "tasks and total fallback",
			body:    `{"total": 3, "tasks": [{"id": "x"}]}`,
			wantIDs: []string{"x"},
			wantN:   3,
		},
		{
			name:    "missing count uses page length",
			body:    `{"results": [{"id": 1}, {"id": 2}]}`,
			wantIDs: []string{"1", "2"},
			wantN:   2,
		},
		{
			name:    "custom paths",
			body:    `{"data": {"items": [{"id": 5}], "meta": {"total": 10}}}`,
			opts:    []httpsource.Option{httpsource.WithResultsPath("data.items"), httpsource.WithCountPath("data.meta.total")},
			wantIDs: []string{"5"},
			wantN:   10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serve(t, http.StatusOK, tt.body)
			client, err := httpsource.New(srv.URL, tt.opts...)
			require.NoError(t, err)

			res, err := client.List(context.Background(), "tasks", query.ListParams{Page: 1, PageSize: 30})
			require.NoError(t, err)

			assert.Equal(t, tt.wantIDs, res.IDs())
			assert.Equal(t, tt.wantN, res.Count)
		})
	}
}

func TestList_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   remote.FetchErrorCode
	}{
		{"server error", http.StatusInternalServerError, `{"detail": "boom"}`, remote.CodeServer},
		{"not found", http.StatusNotFound, ``, remote.CodeServer},
		{"invalid json", http.StatusOK, `{"results": [`, remote.CodeDecode},
		{"no record array", http.StatusOK, `{"items": []}`, remote.CodeDecode},
		{"record not an object", http.StatusOK, `{"results": [1, 2]}`, remote.CodeDecode},
		{"count not a number", http.StatusOK, `{"count": "many", "results": []}`, remote.CodeDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serve(t, tt.status, tt.body)
			client, err := httpsource.New(srv.URL)
			require.NoError(t, err)

			_, err = client.List(context.Background(), "tasks", query.ListParams{Page: 1, PageSize: 30})

			require.Error(t, err)
			assert.Equal(t, tt.want, remote.CodeOf(err))
		})
	}
}

func TestList_ServerErrorCarriesStatus(t *testing.T) {
	srv, _ := serve(t, http.StatusBadGateway, "upstream down")
	client, err := httpsource.New(srv.URL)
	require.NoError(t, err)

	_, err = client.List(context.Background(), "tasks", query.ListParams{Page: 1, PageSize: 30})

	var fe *remote.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.Status)
	assert.Contains(t, fe.Error(), "upstream down")
}

func TestList_TransportError(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `{}`)
	base := srv.URL
	srv.Close()

	client, err := httpsource.New(base)
	require.NoError(t, err)

	_, err = client.List(context.Background(), "tasks", query.ListParams{Page: 1, PageSize: 30})

	assert.Equal(t, remote.CodeTransport, remote.CodeOf(err))
}

func TestList_CancelledRequestIsNotAFetchError(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	client, err := httpsource.New(srv.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.List(ctx, "tasks", query.ListParams{Page: 1, PageSize: 30})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, remote.IsFetchError(err))
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := httpsource.New("ftp://example.com")
	assert.Error(t, err)
	_, err = httpsource.New("://nope")
	assert.Error(t, err)
}

func TestLookupToken(t *testing.T) {
	keyring.MockInit()

	t.Setenv(httpsource.TokenEnv, "")
	tok, err := httpsource.LookupToken("default")
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, httpsource.SaveToken("default", "from-keyring"))
	tok, err = httpsource.LookupToken("default")
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", tok)

	t.Setenv(httpsource.TokenEnv, "from-env")
	tok, err = httpsource.LookupToken("default")
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)

	require.NoError(t, httpsource.DeleteToken("default"))
}
