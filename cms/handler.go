package cms

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nasermirzaei89/spacetraveling/prismic"
)

const (
	MasterRef = "master"

	publicationDateLayout = "2006-01-02T15:04:05-0700"
)

type Handler struct {
	mux         *http.ServeMux
	svc         *Service
	accessToken string
}

var _ http.Handler = (*Handler)(nil)

// NewHandler serves the API under /api/v2. An empty accessToken disables token checks.
func NewHandler(svc *Service, accessToken string) *Handler {
	h := &Handler{
		mux:         &http.ServeMux{},
		svc:         svc,
		accessToken: accessToken,
	}

	h.mux.Handle("GET /api/v2", h.HandleAPI())
	h.mux.Handle("GET /api/v2/documents/search", h.HandleSearch())

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid access token")

		return
	}

	h.mux.ServeHTTP(w, r)
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.accessToken == "" {
		return true
	}

	token := r.URL.Query().Get("access_token")

	return subtle.ConstantTimeCompare([]byte(token), []byte(h.accessToken)) == 1
}

func (h *Handler) HandleAPI() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, prismic.API{
			Refs: []prismic.Ref{{ID: MasterRef, Ref: MasterRef, Label: "Master", IsMasterRef: true}},
		})
	})
}

func (h *Handler) HandleSearch() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if query.Get("ref") != MasterRef {
			writeError(w, http.StatusBadRequest, "ref is missing or invalid")

			return
		}

		req, err := parseSearchRequest(query)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())

			return
		}

		result, err := h.svc.Search(r.Context(), req)
		if err != nil {
			var invalidQueryErr InvalidQueryError
			if errors.As(err, &invalidQueryErr) {
				writeError(w, http.StatusBadRequest, invalidQueryErr.Error())

				return
			}

			slog.ErrorContext(r.Context(), "failed to search documents", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")

			return
		}

		writeJSON(w, r, http.StatusOK, searchResponse(r, result))
	})
}

var predicatePattern = regexp.MustCompile(`^\[\s*at\(\s*([\w.-]+)\s*,\s*("(?:[^"\\]|\\.)*")\s*\)\s*\]`)

func parseSearchRequest(query url.Values) (SearchRequest, error) {
	req := SearchRequest{
		Type:     "",
		UID:      "",
		Page:     0,
		PageSize: 0,
		Fetch:    nil,
	}

	if q := query.Get("q"); q != "" {
		err := parsePredicates(q, &req)
		if err != nil {
			return SearchRequest{}, err
		}
	}

	for key, dst := range map[string]*int{"page": &req.Page, "pageSize": &req.PageSize} {
		raw := query.Get(key)
		if raw == "" {
			continue
		}

		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return SearchRequest{}, InvalidQueryError{Reason: key + " must be a positive integer"}
		}

		*dst = n
	}

	if fetch := query.Get("fetch"); fetch != "" {
		req.Fetch = strings.Split(fetch, ",")
	}

	return req, nil
}

// parsePredicates understands [[at(document.type, "x")][at(my.x.uid, "y")]].
func parsePredicates(q string, req *SearchRequest) error {
	q = strings.TrimSpace(q)

	if !strings.HasPrefix(q, "[") || !strings.HasSuffix(q, "]") {
		return InvalidQueryError{Reason: "q must be a list of predicates"}
	}

	rest := strings.TrimSpace(q[1 : len(q)-1])

	for rest != "" {
		m := predicatePattern.FindStringSubmatch(rest)
		if m == nil {
			return InvalidQueryError{Reason: "unsupported predicate near " + strconv.Quote(rest)}
		}

		value, err := strconv.Unquote(m[2])
		if err != nil {
			return InvalidQueryError{Reason: "invalid predicate value " + m[2]}
		}

		path := m[1]

		switch {
		case path == "document.type":
			req.Type = value
		case strings.HasPrefix(path, "my.") && strings.HasSuffix(path, ".uid"):
			req.Type = strings.TrimSuffix(strings.TrimPrefix(path, "my."), ".uid")
			req.UID = value
		default:
			return InvalidQueryError{Reason: "unsupported path " + path}
		}

		rest = strings.TrimSpace(rest[len(m[0]):])
	}

	return nil
}

func searchResponse(r *http.Request, result *SearchResult) prismic.SearchResponse {
	res := prismic.SearchResponse{
		Page:             result.Page,
		ResultsPerPage:   result.PageSize,
		ResultsSize:      len(result.Documents),
		TotalResultsSize: result.TotalResults,
		TotalPages:       result.TotalPages,
		NextPage:         nil,
		PrevPage:         nil,
		Results:          make([]prismic.Document, 0, len(result.Documents)),
	}

	if result.HasNextPage() {
		next := pageURL(r, result.Page+1)
		res.NextPage = &next
	}

	if result.Page > 1 {
		prev := pageURL(r, result.Page-1)
		res.PrevPage = &prev
	}

	for _, doc := range result.Documents {
		res.Results = append(res.Results, wireDocument(doc))
	}

	return res
}

func wireDocument(doc *Document) prismic.Document {
	wire := prismic.Document{
		ID:                   doc.ID,
		UID:                  nil,
		Type:                 doc.Type,
		Tags:                 []string{},
		FirstPublicationDate: formatPublicationDate(doc.FirstPublicationDate),
		LastPublicationDate:  formatPublicationDate(doc.LastPublicationDate),
		Lang:                 "pt-br",
		Data:                 doc.Data,
	}

	if doc.UID != "" {
		uid := doc.UID
		wire.UID = &uid
	}

	return wire
}

func formatPublicationDate(t *time.Time) *string {
	if t == nil {
		return nil
	}

	s := t.UTC().Format(publicationDateLayout)

	return &s
}

// pageURL points at the same search with another page, on the host the client used.
func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	query := r.URL.Query()
	query.Set("page", strconv.Itoa(page))

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: query.Encode(),
	}

	return u.String()
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(errorResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
