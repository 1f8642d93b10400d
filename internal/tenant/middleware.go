package tenant

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lojinha-app/backend-lojinha/internal/common"
)

// Resolver extracts the store slug from HTTP requests using a header or the
// request subdomain under the configured root domain.
type Resolver struct {
	HeaderName  string
	RootDomain  string
	DefaultSlug string
}

// NewResolver builds a resolver. An empty headerName defaults to "X-Store".
func NewResolver(headerName, rootDomain, defaultSlug string) *Resolver {
	if headerName == "" {
		headerName = "X-Store"
	}
	return &Resolver{
		HeaderName:  headerName,
		RootDomain:  strings.ToLower(strings.TrimSpace(rootDomain)),
		DefaultSlug: strings.TrimSpace(defaultSlug),
	}
}

// Middleware injects the resolved slug into the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		slug := r.Resolve(req)
		if slug == "" {
			slug = r.DefaultSlug
		}
		if slug != "" {
			req = req.WithContext(WithSlug(req.Context(), slug))
		}
		next.ServeHTTP(w, req)
	})
}

// Resolve returns the slug from the header if present, otherwise from the
// subdomain.
func (r *Resolver) Resolve(req *http.Request) string {
	if r == nil || req == nil {
		return ""
	}
	if slug := strings.TrimSpace(req.Header.Get(r.HeaderName)); slug != "" {
		return strings.ToLower(slug)
	}
	host := hostWithoutPort(req.Host)
	if host == "" || r.RootDomain == "" {
		return ""
	}
	host = strings.ToLower(host)
	if !strings.HasSuffix(host, "."+r.RootDomain) {
		return ""
	}
	sub := strings.TrimSuffix(host, "."+r.RootDomain)
	if strings.Contains(sub, ".") {
		return ""
	}
	return sub
}

func hostWithoutPort(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// StoreLookup resolves a slug into a store id.
type StoreLookup interface {
	StoreIDBySlug(ctx context.Context, slug string) (uuid.UUID, error)
}

// Binder turns the resolved slug into a concrete store id and rejects
// requests for unknown stores.
type Binder struct {
	Lookup StoreLookup
}

// Middleware requires a resolved slug and injects the matching store id.
func (b Binder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		slug, ok := Slug(req.Context())
		if !ok {
			common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store could not be resolved from request", nil)
			return
		}
		if b.Lookup == nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "store lookup not configured", nil)
			return
		}
		id, err := b.Lookup.StoreIDBySlug(req.Context(), slug)
		if err != nil {
			common.JSONError(w, http.StatusNotFound, "STORE_NOT_FOUND", "unknown store", map[string]any{"slug": slug})
			return
		}
		next.ServeHTTP(w, req.WithContext(WithStoreID(req.Context(), id)))
	})
}
