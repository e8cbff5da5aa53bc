package providers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/km-arc/go-container/framework/container"
	gohttp "github.com/km-arc/go-container/framework/http"
	"github.com/km-arc/go-container/framework/routing"
	"github.com/km-arc/go-container/framework/validation"
)

// hidden parameters are never served.
var hidden = map[string]bool{"app.key": true}

// Inspection mounts read-only container endpoints under /_container:
//
//	GET /_container                    state, restored flag, service count
//	GET /_container/services?tag=x     service ids, optionally by tag
//	GET /_container/parameters/{name}  one compiled parameter
//
// When key is non-empty every request must carry "Authorization: Bearer key".
func Inspection(r *routing.Router, c container.Container, key string, state func() string) {
	r.Prefix("/_container", func(r *routing.Router) {
		r.Middleware(bearer(key))

		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			gohttp.NewResponse(w).Success(map[string]any{
				"state":    state(),
				"restored": c.IsRestored(),
				"services": len(ids(c)),
			})
		})

		r.Get("/services", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)
			tag := gohttp.NewRequest(req).Query("tag")

			v := validation.Make(map[string]string{"tag": tag}, validation.Rules{
				"tag": `sometimes|max:128|regex:^[\w.-]+$`,
			})
			if v.Fails() {
				res.ValidationError(v.Errors())
				return
			}
			if tag != "" {
				res.Success(nonNil(c.Tagged(tag)))
				return
			}
			res.Success(nonNil(ids(c)))
		})

		r.Get("/parameters/{name}", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)
			name := gohttp.NewRequest(req).RouteParam("name")
			if hidden[name] {
				res.NotFound()
				return
			}
			v, err := c.Parameter(name)
			switch {
			case errors.Is(err, container.ErrParameterNotFound):
				res.NotFound("Unknown parameter " + name + ".")
			case err != nil:
				res.ServerError(err.Error())
			default:
				res.Success(redact(v))
			}
		})
	})
}

func bearer(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" {
				token := gohttp.NewRequest(r).BearerToken()
				if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
					gohttp.NewResponse(w).Unauthorized()
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ids(c container.Container) []string {
	if l, ok := c.(interface{ IDs() []string }); ok {
		return l.IDs()
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// redact drops password entries from mapping parameters.
func redact(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, e := range m {
		if k == "password" {
			continue
		}
		out[k] = redact(e)
	}
	return out
}
