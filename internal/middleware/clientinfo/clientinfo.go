package clientinfo

import (
	"context"
	"net"
	"net/http"
	"strings"

	"session_service/internal/models"
)

const HeaderClientType = "X-CLIENT-TYPE"

type ctxKey struct{}

var mobileAgents = []string{"okhttp", "dart", "cfnetwork", "android", "iphone", "mobile"}

// New resolves the caller's client type, agent and origin IP into the
// request context. An explicit X-CLIENT-TYPE header wins over the agent.
func New() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			info := Resolve(r)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, info)))
		}

		return http.HandlerFunc(fn)
	}
}

func Resolve(r *http.Request) models.ClientInfo {
	agent := r.UserAgent()

	ct, ok := models.ParseClientType(r.Header.Get(HeaderClientType))
	if !ok {
		ct = fromAgent(agent)
	}

	return models.ClientInfo{
		Type:  ct,
		Agent: agent,
		IP:    originIP(r),
	}
}

// FromContext falls back to Resolve when the middleware is not mounted.
func FromContext(r *http.Request) models.ClientInfo {
	if info, ok := r.Context().Value(ctxKey{}).(models.ClientInfo); ok {
		return info
	}

	return Resolve(r)
}

func fromAgent(agent string) models.ClientType {
	agent = strings.ToLower(agent)
	for _, m := range mobileAgents {
		if strings.Contains(agent, m) {
			return models.ClientMobile
		}
	}

	return models.ClientWeb
}

func originIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
