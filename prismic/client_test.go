package prismic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/nasermirzaei89/spacetraveling/prismic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, search http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(prismic.API{Refs: []prismic.Ref{
			{ID: "preview", Ref: "preview-ref"},
			{ID: "master", Ref: "master-ref", IsMasterRef: true},
		}})
	})
	mux.HandleFunc("GET /api/v2/documents/search", search)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestAt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `[at(document.type, "post")]`, prismic.At("document.type", "post"))
	assert.Equal(t, `[at(my.post.uid, "say \"hi\"")]`, prismic.At("my.post.uid", `say "hi"`))
}

func TestClient_Query(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string

	srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"ref":          r.URL.Query().Get("ref"),
			"q":            r.URL.Query().Get("q"),
			"fetch":        r.URL.Query().Get("fetch"),
			"pageSize":     r.URL.Query().Get("pageSize"),
			"access_token": r.URL.Query().Get("access_token"),
		}

		_, _ = w.Write([]byte(`{
			"page": 1,
			"results_per_page": 1,
			"total_pages": 2,
			"next_page": "http://example/api/v2/documents/search?page=2",
			"prev_page": null,
			"results": [{"id": "X1", "uid": "a", "type": "post", "first_publication_date": null, "data": {"title": "T1"}}]
		}`))
	})

	client, err := prismic.NewClient(srv.URL+"/api/v2/", "secret")
	require.NoError(t, err)

	res, err := client.Query(
		context.Background(),
		[]string{prismic.At("document.type", "post")},
		prismic.QueryOptions{Fetch: []string{"post.title", "post.author"}, PageSize: 1},
	)
	require.NoError(t, err)

	assert.Equal(t, "master-ref", gotQuery["ref"])
	assert.Equal(t, `[[at(document.type, "post")]]`, gotQuery["q"])
	assert.Equal(t, "post.title,post.author", gotQuery["fetch"])
	assert.Equal(t, "1", gotQuery["pageSize"])
	assert.Equal(t, "secret", gotQuery["access_token"])

	require.Len(t, res.Results, 1)
	require.NotNil(t, res.NextPage)
	assert.Equal(t, "http://example/api/v2/documents/search?page=2", *res.NextPage)
	assert.Nil(t, res.Results[0].FirstPublicationDate)
	require.NotNil(t, res.Results[0].UID)
	assert.Equal(t, "a", *res.Results[0].UID)
	assert.JSONEq(t, `{"title": "T1"}`, string(res.Results[0].Data))
}

func TestClient_GetByUID(t *testing.T) {
	t.Parallel()

	srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == `[[at(my.post.uid, "known")]]` {
			_, _ = w.Write([]byte(`{"results": [{"id": "X1", "uid": "known", "type": "post", "data": {}}]}`))

			return
		}

		_, _ = w.Write([]byte(`{"results": []}`))
	})

	client, err := prismic.NewClient(srv.URL+"/api/v2", "")
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		doc, err := client.GetByUID(context.Background(), "post", "known")
		require.NoError(t, err)
		assert.Equal(t, "X1", doc.ID)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		_, err := client.GetByUID(context.Background(), "post", "unknown")
		require.Error(t, err)

		var notFoundErr prismic.DocumentNotFoundError
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "unknown", notFoundErr.UID)
	})
}

func TestClient_FetchPage(t *testing.T) {
	t.Parallel()

	srv := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "3" {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		_, _ = w.Write([]byte(`{"next_page": null, "results": [{"id": "X2", "uid": "b", "type": "post", "data": {}}]}`))
	})

	client, err := prismic.NewClient(srv.URL+"/api/v2", "")
	require.NoError(t, err)

	t.Run("follows cursor", func(t *testing.T) {
		t.Parallel()

		res, err := client.FetchPage(context.Background(), srv.URL+"/api/v2/documents/search?page=2")
		require.NoError(t, err)
		assert.Nil(t, res.NextPage)
		require.Len(t, res.Results, 1)
		assert.Equal(t, "X2", res.Results[0].ID)
	})

	t.Run("rejects foreign host", func(t *testing.T) {
		t.Parallel()

		_, err := client.FetchPage(context.Background(), "http://evil.example/api/v2/documents/search?page=2")
		require.Error(t, err)

		var foreignErr prismic.ForeignURLError
		require.ErrorAs(t, err, &foreignErr)
	})

	t.Run("unexpected status", func(t *testing.T) {
		t.Parallel()

		_, err := client.FetchPage(context.Background(), srv.URL+"/api/v2/documents/search?page=3")
		require.Error(t, err)

		var statusErr prismic.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	})
}

func TestNewClient_RejectsRelativeEndpoint(t *testing.T) {
	t.Parallel()

	_, err := prismic.NewClient("/api/v2", "")
	require.Error(t, err)
}

func TestClient_TransportErrorRedactsAccessToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/api/v2"
	srv.Close()

	client, err := prismic.NewClient(endpoint, "supersecret")
	require.NoError(t, err)

	_, err = client.Query(context.Background(), []string{prismic.At("document.type", "post")}, prismic.QueryOptions{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "supersecret")

	_, err = client.FetchPage(context.Background(), endpoint+"/documents/search?page=2")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "supersecret")
}

func TestClient_CursorsCarryNoAccessToken(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server

	srv = newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 0 {
			page = 1
		}

		next := srv.URL + "/api/v2/documents/search?access_token=secret&page=2"
		prev := srv.URL + "/api/v2/documents/search?access_token=secret&page=1"

		_ = json.NewEncoder(w).Encode(prismic.SearchResponse{
			Page:     page,
			NextPage: &next,
			PrevPage: &prev,
			Results:  []prismic.Document{},
		})
	})

	client, err := prismic.NewClient(srv.URL+"/api/v2", "secret")
	require.NoError(t, err)

	res, err := client.Query(context.Background(), nil, prismic.QueryOptions{})
	require.NoError(t, err)
	require.NotNil(t, res.NextPage)
	require.NotNil(t, res.PrevPage)
	assert.NotContains(t, *res.NextPage, "secret")
	assert.NotContains(t, *res.PrevPage, "secret")
	assert.Contains(t, *res.NextPage, "page=2")

	res, err = client.FetchPage(context.Background(), *res.NextPage)
	require.NoError(t, err, "the client must add its own token to a cursor")
	assert.Equal(t, 2, res.Page)
	assert.NotContains(t, *res.NextPage, "secret")
}
