// Package app 组装依赖并管理 HTTP 服务生命周期
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/edwinttmm/Testing-sub002/internal/conf"
)

// App 聚合 HTTP 服务与依赖清理函数
type App struct {
	svc     *http.Server
	cleanup func()
}

// NewApp 注入依赖并启动 HTTP 服务
func NewApp(bc *conf.Bootstrap, log *slog.Logger) (*App, error) {
	handler, cleanup, err := wireApp(bc, log)
	if err != nil {
		return nil, fmt.Errorf("wire app: %w", err)
	}

	svc := &http.Server{
		Addr:              fmt.Sprintf(":%d", bc.Server.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", svc.Addr)
		if err := svc.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server exited", "err", err)
			os.Exit(1)
		}
	}()

	return &App{svc: svc, cleanup: cleanup}, nil
}

// Close 优雅停机，等待在途请求完成后释放依赖
func (a *App) Close(ctx context.Context) error {
	err := a.svc.Shutdown(ctx)
	if a.cleanup != nil {
		a.cleanup()
	}
	return err
}
