// Package api is the admin HTTP surface: session login, catalog CRUD and
// the interaction log.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/set-night/tokobot/internal/config"
	"github.com/set-night/tokobot/internal/domain"
	"github.com/set-night/tokobot/internal/service"
)

const maxBodySize = 1 << 20

type InteractionLister interface {
	ListInteractions(ctx context.Context, limit, offset int) ([]domain.InteractionRecord, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type AppDeps struct {
	Catalog      *service.CatalogService
	Auth         *service.AuthService
	Interactions InteractionLister
	DB           Pinger
	// Version reports the active model handle version for /health.
	Version func() uint64
	// TraceDropped reports interaction records lost before reaching a sink.
	TraceDropped func() uint64
	// PublicDir holds the admin front-end; skipped when it does not exist.
	PublicDir string
	// SecureCookie sets the Secure flag on the session cookie.
	SecureCookie bool
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", handleHealth(deps))
	r.Post("/api/login", handleLogin(deps))
	r.Post("/api/logout", handleLogout(deps))
	r.Get("/api/check-session", handleCheckSession(deps))

	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(deps.Auth))
		r.Get("/api/inventory", handleListItems(deps))
		r.Post("/api/inventory", handleCreateItem(deps))
		r.Get("/api/inventory/{id}", handleGetItem(deps))
		r.Put("/api/inventory/{id}", handleUpdateItem(deps))
		r.Delete("/api/inventory/{id}", handleDeleteItem(deps))
		r.Post("/api/rebuild", handleRebuild(deps))
		r.Get("/api/interactions", handleListInteractions(deps))
	})

	if deps.PublicDir != "" {
		if info, err := os.Stat(deps.PublicDir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(deps.PublicDir)))
		} else {
			slog.Warn("public dir not found, admin front-end disabled", "dir", deps.PublicDir)
		}
	}

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type response struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Warning   string     `json:"warning,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Item      any        `json:"item,omitempty"`
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]any{"status": "ok"}
		if deps.Version != nil {
			v := deps.Version()
			body["context_version"] = v
			if v == 0 {
				status = http.StatusServiceUnavailable
				body["status"] = "not ready"
			}
		}
		if deps.TraceDropped != nil {
			body["trace_dropped"] = deps.TraceDropped()
		}
		if deps.DB != nil {
			if err := deps.DB.Ping(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "database unavailable"
			}
		}
		writeJSON(w, status, body)
	}
}

func handleLogin(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		token, expires, err := deps.Auth.Login(r.Context(), req.Username, req.Password)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			httpError(w, http.StatusUnauthorized, "Username atau password salah!")
			return
		}
		if err != nil {
			slog.Error("login", "error", err)
			httpError(w, http.StatusInternalServerError, "Terjadi kesalahan server.")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     config.AdminSessionCookie,
			Value:    token,
			Path:     "/",
			Expires:  expires,
			HttpOnly: true,
			Secure:   deps.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		slog.Info("admin logged in", "username", req.Username)
		writeJSON(w, http.StatusOK, response{Success: true, Message: "Login berhasil", Token: token, ExpiresAt: &expires})
	}
}

func handleLogout(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     config.AdminSessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   deps.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, response{Success: true, Message: "Logout berhasil"})
	}
}

func handleCheckSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"loggedIn": false}
		if token := sessionToken(r); token != "" {
			if claims, err := deps.Auth.Verify(token); err == nil {
				body["loggedIn"] = true
				body["username"] = claims.Username
			}
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func handleListItems(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := deps.Catalog.List(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list items: %v", err)
			return
		}
		if items == nil {
			items = []domain.CatalogItem{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleGetItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := deps.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			catalogError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func handleCreateItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item domain.CatalogItem
		if !decodeBody(w, r, &item) {
			return
		}
		res, err := deps.Catalog.Create(r.Context(), item)
		if err != nil {
			catalogError(w, err)
			return
		}
		slog.Info("item created", "item_id", res.Item.ID, "admin", adminFrom(r.Context()))
		writeMutation(w, http.StatusCreated, "Barang berhasil ditambahkan!", res)
	}
}

func handleUpdateItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.ItemPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		res, err := deps.Catalog.Update(r.Context(), chi.URLParam(r, "id"), patch)
		if err != nil {
			catalogError(w, err)
			return
		}
		slog.Info("item updated", "item_id", res.Item.ID, "admin", adminFrom(r.Context()))
		writeMutation(w, http.StatusOK, "Data berhasil diupdate!", res)
	}
}

func handleDeleteItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Catalog.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			catalogError(w, err)
			return
		}
		slog.Info("item deleted", "item_id", res.Item.ID, "admin", adminFrom(r.Context()))
		writeMutation(w, http.StatusOK, "Barang berhasil dihapus!", res)
	}
}

func handleRebuild(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Catalog.Rebuild(r.Context()); err != nil {
			httpError(w, http.StatusBadGateway, "rebuild failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Message: "Data toko dimuat ulang"})
	}
}

func handleListInteractions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", config.InteractionsPageSize, 500)
		offset := parseIntParam(r, "offset", 0, 0)

		records, err := deps.Interactions.ListInteractions(r.Context(), limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list interactions: %v", err)
			return
		}
		if records == nil {
			records = []domain.InteractionRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func writeMutation(w http.ResponseWriter, status int, message string, res service.MutationResult) {
	writeJSON(w, status, response{
		Success: true,
		Message: message,
		Warning: res.Warning(),
		Item:    res.Item,
	})
}

func catalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		httpError(w, http.StatusNotFound, "Barang tidak ditemukan.")
	case errors.Is(err, domain.ErrItemExists):
		httpError(w, http.StatusConflict, "ID Barang sudah ada.")
	case errors.Is(err, domain.ErrInvalidItem):
		httpError(w, http.StatusBadRequest, "%v", err)
	default:
		slog.Error("catalog request", "error", err)
		httpError(w, http.StatusInternalServerError, "Terjadi kesalahan server.")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, response{Success: false, Message: fmt.Sprintf(format, args...)})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
