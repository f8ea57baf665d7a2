package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// Server HTTP API 与 /ws 推送
type Server struct {
	srv *http.Server
	hub *Hub
}

func NewServer(addr string, feed FeedController, hub *Hub) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(feed, hub),
			ReadHeaderTimeout: 5 * time.Second,
		},
		hub: hub,
	}
}

func (s *Server) Addr() string { return s.srv.Addr }

// Run 阻塞直到 ctx 取消或监听失败；ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	if s.hub != nil {
		go s.hub.Run(hubCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown")
		return err
	}
	log.Info().Msg("http server stopped")
	return nil
}
