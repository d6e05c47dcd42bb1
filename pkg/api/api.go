package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"blog/pkg/auth"
	"blog/pkg/media"
	"blog/pkg/storage"
)

// Moderator decides whether a comment or reply text may be published.
type Moderator interface {
	Allowed(ctx context.Context, text string) (bool, error)
}

// LogWriter ships access log entries. *kafka.Writer satisfies it.
type LogWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Config struct {
	ServiceName string
	Storage     storage.Storage
	Auth        *auth.Service
	Media       *media.Store
	// Moderator is optional. Without it every text is accepted.
	Moderator Moderator
	// LogWriter is optional. Without it no access log is shipped.
	LogWriter LogWriter
}

type API struct {
	ServiceName string
	DB          storage.Storage

	r     *mux.Router
	auth  *auth.Service
	media *media.Store
	mod   Moderator
	kw    LogWriter
}

func New(cfg Config) *API {
	api := API{
		ServiceName: cfg.ServiceName,
		DB:          cfg.Storage,
		r:           mux.NewRouter(),
		auth:        cfg.Auth,
		media:       cfg.Media,
		mod:         cfg.Moderator,
		kw:          cfg.LogWriter,
	}
	api.endpoints()

	return &api
}

func (api *API) Router() *mux.Router {
	return api.r
}

func (api *API) endpoints() {
	api.r.Use(api.requestIDMiddleware)
	api.r.Use(api.corsMiddleware)

	if api.kw != nil {
		api.r.Use(api.loggingMiddleware(api.kw))
	}

	ar := api.r.PathPrefix("/api").Subrouter()
	ar.Use(api.headerMiddleware)
	ar.Methods(http.MethodOptions).HandlerFunc(api.preflightHandler)

	ar.HandleFunc("/auth/signup", api.signupHandler).Methods(http.MethodPost)
	ar.HandleFunc("/auth/login", api.loginHandler).Methods(http.MethodPost)
	ar.Handle("/auth/user", api.authMiddleware(api.userHandler)).Methods(http.MethodGet)

	ar.HandleFunc("/blogs", api.listBlogsHandler).Methods(http.MethodGet)
	ar.Handle("/blogs", api.authMiddleware(api.createBlogHandler)).Methods(http.MethodPost)
	ar.HandleFunc("/blogs/getOne/{id}", api.listBlogsByAuthorHandler).Methods(http.MethodGet)
	ar.HandleFunc("/blogs/{id}", api.blogHandler).Methods(http.MethodGet)
	ar.Handle("/blogs/{id}", api.authMiddleware(api.updateBlogHandler)).Methods(http.MethodPut)
	ar.Handle("/blogs/{id}", api.authMiddleware(api.deleteBlogHandler)).Methods(http.MethodDelete)
	ar.Handle("/blogs/{id}/comments", api.authMiddleware(api.addCommentHandler)).Methods(http.MethodPost)
	ar.Handle("/blogs/{id}/comments/{commentId}/replies", api.authMiddleware(api.addReplyHandler)).Methods(http.MethodPost)

	api.r.PathPrefix("/" + media.URLPrefix + "/").Handler(api.media.Handler()).Methods(http.MethodGet, http.MethodHead)
}

func (api *API) preflightHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// parseForm reads the request body into r.Form. Multipart bodies go through the media
// store so that the upload cap applies; a JSON object body has its string fields copied
// into the form so handlers read both encodings the same way.
func (api *API) parseForm(w http.ResponseWriter, r *http.Request) error {
	if err := api.media.ParseForm(w, r); err != nil {
		if errors.Is(err, media.ErrTooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if r.MultipartForm != nil || !isJSON(r) {
		return nil
	}

	var body map[string]any
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	defer r.Body.Close()

	if r.Form == nil {
		r.Form = url.Values{}
	}
	for k, v := range body {
		if s, ok := v.(string); ok {
			r.Form.Set(k, s)
		}
	}
	return nil
}

// discard removes an upload whose owning request failed.
func (api *API) discard(stored, sID string) {
	if err := api.media.Remove(stored); err != nil {
		log.Warnf("[discard][%s] failed to remove %s: %v", sID, stored, err)
	}
}

func isJSON(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if err := writeJSON(w, status, MessageResponse{Message: msg}); err != nil {
		log.Errorf("[writeError] failed to encode error response: %v", err)
	}
}

// GetRequestID extracts the request ID from the context.
// It returns the request ID as a string if present, otherwise returns an empty string.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
