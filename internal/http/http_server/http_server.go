package http_server

import (
	"context"
	"errors"
	"fmt"
	"matchlobby/internal/http/lobbyhandler"
	"matchlobby/internal/ws"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const indexPage = `<!doctype html>
<html><head><title>matchlobby</title></head>
<body><h1>Hello world</h1></body></html>`

type httpServer struct {
	listenPort     uint16
	srv            http.Server
	ln             net.Listener
	lobby          lobbyhandler.LobbyService
	wsSrv          *ws.WsServer
	allowedOrigins []string
	metrics        http.Handler
	ctx            context.Context
}

func NewHttpServer(
	ctx context.Context,
	listenPort uint16,
	wsSrv *ws.WsServer,
	lobby lobbyhandler.LobbyService,
	allowedOrigins []string,
	metrics http.Handler,
) *httpServer {
	return &httpServer{
		listenPort:     listenPort,
		wsSrv:          wsSrv,
		lobby:          lobby,
		allowedOrigins: allowedOrigins,
		metrics:        metrics,
		ctx:            ctx,
	}
}

// Handler builds the full route table behind the CORS filter.
func (h *httpServer) Handler() http.Handler {
	routerEngine := gin.New()

	routerEngine.Use(ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/healthz", "/metrics"},
	}))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// Liveness page
	routerEngine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
	})
	routerEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.metrics != nil {
		routerEngine.GET("/metrics", gin.WrapH(h.metrics))
	}

	// websocket endpoint
	if h.wsSrv != nil {
		routerEngine.GET("/ws", h.wsSrv.Handle)
	}

	// REST API
	lh := lobbyhandler.New(h.lobby)
	lh.Register(routerEngine)

	return cors.New(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}).Handler(routerEngine)
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	h.srv = http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	zap.L().Info("http_listening", zap.String("addr", listenAddr))
	err = h.srv.Serve(h.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in‑flight requests to finish.
func (h *httpServer) Dispose() error {
	// The parent ctx is usually already cancelled at this point.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn’t finish in time
	}
	return nil
}
