package paywall

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

// Content serves the storefront pages, the client config script and the
// premium pages behind the gate.
type Content struct {
	publicDir    string
	protectedDir string
	clientID     string
}

func NewContent(cfg *Config) *Content {
	return &Content{
		publicDir:    cfg.PublicDir,
		protectedDir: cfg.ProtectedDir,
		clientID:     cfg.PayPal.ClientID,
	}
}

func (c *Content) AppendRoutes(r chi.Router, gate *Gate, tiers []string) {
	r.Get("/", c.index)
	r.Get("/config.js", c.configScript)
	r.Get("/healthz", healthz)
	r.Handle("/public/*", http.StripPrefix("/public", http.FileServer(htmlFallback{http.Dir(c.publicDir)})))

	for _, tier := range tiers {
		r.With(gate.RequireTier(tier)).Get("/premium/"+tier, c.premium(tier))
	}
}

func (c *Content) index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(c.publicDir, "index.html"))
}

// configScript exposes the public PayPal client id to the checkout buttons.
func (c *Content) configScript(w http.ResponseWriter, r *http.Request) {
	id, _ := json.Marshal(c.clientID)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte("window.PAYPAL_CLIENT_ID=" + string(id) + ";\n"))
}

func (c *Content) premium(tier string) http.HandlerFunc {
	page := filepath.Join(c.protectedDir, tier+".html")
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, page)
	}
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// htmlFallback serves "/name" from "name.html" when "name" does not exist.
type htmlFallback struct {
	fs http.FileSystem
}

func (h htmlFallback) Open(name string) (http.File, error) {
	f, err := h.fs.Open(name)
	if err != nil && errors.Is(err, fs.ErrNotExist) && path.Ext(name) == "" {
		return h.fs.Open(name + ".html")
	}
	return f, err
}
