package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/urlnorm"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCheck probes ?url= and answers "Up" or "Down" as plain text. Invalid
// URLs are reported as Down.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "URL parameter is required", http.StatusBadRequest)
		return
	}

	up := false
	target, err := urlnorm.Format(raw)
	if err == nil {
		out := s.Prober.Check(r.Context(), target)
		up = out.Success
		if !up {
			fields := []zap.Field{
				zap.String("url", target),
				zap.Int("http_status", out.StatusCode),
				zap.String("reason", out.Message),
			}
			// a DNS failure explains most "Down" answers for typos
			if s.DNS != nil {
				dns := s.DNS.Diagnose(r.Context(), target)
				fields = append(fields,
					zap.String("dns_class", dns.Class),
					zap.Strings("nameservers", dns.Nameservers),
					zap.String("resolver_error", dns.ResolverError),
				)
			}
			s.Logger.Info("check_down", fields...)
		}
	} else {
		s.Logger.Debug("check_invalid_url", zap.String("url", raw), zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if up {
		_, _ = w.Write([]byte("Up"))
		return
	}
	_, _ = w.Write([]byte("Down"))
}
