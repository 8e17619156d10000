package providers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bookcatalog/internal/api"
	"github.com/listenupapp/bookcatalog/internal/catalog"
	"github.com/listenupapp/bookcatalog/internal/config"
	"github.com/listenupapp/bookcatalog/internal/logger"
	"github.com/listenupapp/bookcatalog/internal/sse"
	"github.com/listenupapp/bookcatalog/internal/validation"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	// Listener is bound before the handle is returned, so its address is final.
	Listener net.Listener
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts serving.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	creds := do.MustInvoke[*CredentialStoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)

	apiLog := log.Component("api")
	handler := api.NewServer(api.Deps{
		Catalog:       cat,
		Credentials:   creds.Store,
		Search:        indexHandle.Index,
		Validator:     validator,
		Events:        sse.NewHandler(sseHandle.Manager, apiLog),
		Clients:       sseHandle.Manager,
		CORSOrigins:   cfg.Server.CORSOrigins,
		MutationRPS:   cfg.BooksAPI.RequestsPerSecond,
		MutationBurst: cfg.BooksAPI.Burst,
	}, apiLog)

	srv := api.NewHTTPServer(":"+cfg.Server.Port, handler,
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, Listener: ln}, nil
}
