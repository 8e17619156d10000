package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/listenupapp/bookcatalog/internal/credentials"
	"github.com/listenupapp/bookcatalog/internal/http/response"
)

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
	// Generation is the catalog generation a component last reflected.
	Generation uint64 `json:"generation,omitempty"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	components := map[string]ComponentHealth{
		"credentials": s.checkCredentials(r.Context()),
		"catalog":     s.checkCatalog(),
		"search":      s.checkSearchIndex(),
		"sse":         s.checkSSEManager(),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	status := http.StatusOK
	if overall == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, HealthResponse{Status: overall, Components: components}, s.logger)
}

// checkCredentials verifies the credential store answers reads.
func (s *Server) checkCredentials(ctx context.Context) ComponentHealth {
	if s.creds == nil {
		return ComponentHealth{Status: "degraded", Message: "credential store not configured"}
	}

	start := time.Now()
	_, ok, err := s.creds.Get(ctx, credentials.TokenKey)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{Status: "unhealthy", Latency: latency.String(), Message: "credential store read failed"}
	}
	if !ok {
		return ComponentHealth{Status: "degraded", Latency: latency.String(), Message: "no session token stored"}
	}
	return ComponentHealth{Status: "healthy", Latency: latency.String()}
}

// checkCatalog reports the last recorded catalog failure, if any.
func (s *Server) checkCatalog() ComponentHealth {
	state := s.catalog.State()
	if state.Error != nil {
		return ComponentHealth{Status: "degraded", Message: string(state.Error.Code) + ": " + state.Error.Message}
	}
	return ComponentHealth{Status: "healthy", Message: formatCount(len(state.Books), "book"), Generation: state.Generation}
}

// checkSearchIndex verifies the Bleve index is accessible.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.search == nil {
		return ComponentHealth{Status: "degraded", Message: "search index not configured"}
	}

	start := time.Now()
	count, err := s.search.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{Status: "unhealthy", Latency: latency.String(), Message: "search index unreachable"}
	}
	return ComponentHealth{
		Status:     "healthy",
		Latency:    latency.String(),
		Message:    formatCount(int(count), "document"),
		Generation: s.search.Generation(),
	}
}

// checkSSEManager reports connected event stream clients.
func (s *Server) checkSSEManager() ComponentHealth {
	if s.clients == nil {
		return ComponentHealth{Status: "degraded", Message: "SSE manager not configured"}
	}
	return ComponentHealth{Status: "healthy", Message: formatCount(s.clients.ClientCount(), "connected client")}
}

func formatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
