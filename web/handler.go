package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/nasermirzaei89/spacetraveling/contents"
	"github.com/nasermirzaei89/spacetraveling/prerender"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	//go:embed templates/*
	templatesFS embed.FS

	//go:embed static/*
	staticFS embed.FS
)

const (
	defaultSiteTitle = "spacetraveling"
	hxRequestTrue    = "true"
	homePageKey      = "/"
)

// Observer receives page generation and request outcomes.
type Observer interface {
	prerender.Observer
	ObserveHTTPRequest(method string, code int)
}

type Handler struct {
	mux         *http.ServeMux
	handler     http.Handler
	tpl         *template.Template
	static      fs.FS
	contentsSvc *contents.Service
	homePage    *prerender.Cache[contents.Pagination]
	postPages   *prerender.Cache[*contents.PostDetail]
	revalidate  time.Duration
	markdown    goldmark.Markdown
	observer    Observer
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(contentsSvc *contents.Service, revalidate time.Duration, observer Observer) (*Handler, error) {
	h := &Handler{
		mux:         nil,
		handler:     nil,
		tpl:         nil,
		contentsSvc: contentsSvc,
		homePage:    nil,
		postPages:   nil,
		revalidate:  revalidate,
		markdown:    nil,
		observer:    observer,
	}

	{
		h.markdown = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM, // tables, strikethrough, task lists
			),
		)
	}

	{
		tpl, err := template.New("").Funcs(h.funcs()).ParseFS(templatesFS, "templates/*.gohtml")
		if err != nil {
			return nil, fmt.Errorf("failed to parse templates: %w", err)
		}

		h.tpl = tpl
	}

	{
		static, err := fs.Sub(staticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("failed to sub static fs: %w", err)
		}

		h.static = static
	}

	{
		var (
			homeOpts []prerender.Option[contents.Pagination]
			postOpts = []prerender.Option[*contents.PostDetail]{
				prerender.WithDropOn[*contents.PostDetail](isPostNotFound),
			}
		)

		if observer != nil {
			homeOpts = append(homeOpts, prerender.WithObserver[contents.Pagination](observer))
			postOpts = append(postOpts, prerender.WithObserver[*contents.PostDetail](observer))
		}

		h.homePage = prerender.New("home", revalidate, h.generateHomePage, homeOpts...)
		h.postPages = prerender.New("post", revalidate, h.generatePostPage, postOpts...)
	}

	{
		h.mux = &http.ServeMux{}
		h.handler = h.mux

		h.registerRoutes()
	}

	{
		h.handler = loggingMiddleware(h.handler, observer)
		h.handler = requestIDMiddleware(h.handler)
		h.handler = recoverMiddleware(h.handler)
	}

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// Wait blocks until background page regenerations finish.
func (h *Handler) Wait() {
	h.homePage.Wait()
	h.postPages.Wait()
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("/", h.HandleIndex)

	h.mux.Handle("GET /posts", h.HandleLoadMore())
	h.mux.Handle("GET /post/{uid}", h.HandleViewPostPage())
}

func isPostNotFound(err error) bool {
	var notFoundErr contents.PostNotFoundError

	return errors.As(err, &notFoundErr)
}

func (h *Handler) generateHomePage(ctx context.Context, _ string) (contents.Pagination, error) {
	return h.contentsSvc.ListPosts(ctx)
}

func (h *Handler) generatePostPage(ctx context.Context, uid string) (*contents.PostDetail, error) {
	return h.contentsSvc.GetPost(ctx, uid)
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, name string, extraData map[string]any,
) {
	data := map[string]any{
		"CurrentPath": r.URL.Path,
		"Lang":        "pt-BR",
		"Dir":         "ltr",
	}

	maps.Copy(data, extraData)

	data["SiteTitle"] = defaultSiteTitle

	if extraData["SiteTitle"] != nil {
		data["SiteTitle"] = fmt.Sprintf("%s | %s", extraData["SiteTitle"], data["SiteTitle"])
	}

	err := h.tpl.ExecuteTemplate(w, name, data)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}
}

func (h *Handler) setCacheControl(w http.ResponseWriter) {
	w.Header().Set(
		"Cache-Control",
		fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate", int(h.revalidate.Seconds())),
	)
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		h.HandleHomePage(w, r)

		return
	}

	h.HandleStatic(w, r)
}

// HandleStatic serves static files.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.FileServer(http.FS(h.static)).ServeHTTP(w, r)
}

func (h *Handler) HandleHomePage(w http.ResponseWriter, r *http.Request) {
	page, err := h.homePage.Get(r.Context(), homePageKey)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list posts", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	data := map[string]any{
		"SiteTitle": "Posts",
		"Posts":     page.Results,
		"NextPage":  page.NextPage,
	}

	h.setCacheControl(w)
	h.renderTemplate(w, r, "home-page.gohtml", data)
}

// HandleLoadMore renders the posts behind a next page cursor together with the next load more control.
// The listing itself lives in the browser, this handler keeps no state between requests.
// When loading fails the same control is rendered again so the user can retry.
func (h *Handler) HandleLoadMore() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("HX-Request") != hxRequestTrue {
			http.Error(w, "Direct access is forbidden", http.StatusForbidden)

			return
		}

		nextPage := r.URL.Query().Get("next_page")
		if nextPage == "" {
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		listing := contents.NewListing(h.contentsSvc, contents.Pagination{NextPage: nextPage, Results: nil})

		listing.LoadMore(r.Context())

		state := listing.State()

		data := map[string]any{
			"Posts":    state.Results,
			"NextPage": state.NextPage,
		}

		h.renderTemplate(w, r, "load-more.gohtml", data)
	})
}

func (h *Handler) HandleViewPostPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.PathValue("uid")

		post, err := h.postPages.Get(r.Context(), uid)
		if err != nil {
			if isPostNotFound(err) {
				w.WriteHeader(http.StatusNotFound)
				h.renderTemplate(w, r, "not-found-page.gohtml", map[string]any{"SiteTitle": "Post não encontrado"})

				return
			}

			slog.ErrorContext(r.Context(), "failed to get post", "uid", uid, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		data := map[string]any{
			"SiteTitle": post.Data.Title,
			"Post":      post,
		}

		h.setCacheControl(w)
		h.renderTemplate(w, r, "view-post-page.gohtml", data)
	})
}
