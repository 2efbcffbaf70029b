package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/edwinttmm/Testing-sub002/internal/app"
	"github.com/edwinttmm/Testing-sub002/internal/conf"
	"github.com/ixugo/goddd/pkg/system"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// 编译时通过 -ldflags 注入
var (
	buildVersion = "dev"
	gitBranch    string
	gitHash      string
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "conf", filepath.Join(system.Getwd(), "configs", "config.toml"), "配置文件路径")
	flag.Parse()

	bc, err := conf.SetupConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	bc.BuildVersion = buildVersion

	log := setupLogger(&bc.Log, bc.Debug)
	slog.SetDefault(log)

	expvar.NewString("git_branch").Set(gitBranch)
	expvar.NewString("git_hash").Set(gitHash)

	a, err := app.NewApp(bc, log)
	if err != nil {
		slog.Error("app start failed", "err", err)
		os.Exit(1)
	}
	slog.Info("server started",
		"version", buildVersion,
		"branch", gitBranch,
		"hash", gitHash,
		"port", bc.Server.HTTP.Port,
	)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		slog.Error("shutdown", "err", err)
	}
	slog.Info("server stopped")
}

// setupLogger 初始化结构化日志
// 配置了日志目录时按天切割落盘，同时输出到控制台
func setupLogger(cfg *conf.Log, debug bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	if cfg.Dir != "" {
		writer, err := rotatelogs.New(
			filepath.Join(system.Getwd(), cfg.Dir, "server.%Y%m%d.log"),
			rotatelogs.WithMaxAge(7*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			fmt.Fprintln(os.Stderr, "setup log rotation:", err)
		} else {
			out = io.MultiWriter(os.Stdout, writer)
		}
	}

	opts := slog.HandlerOptions{Level: level}
	if debug {
		return slog.New(slog.NewTextHandler(out, &opts))
	}
	return slog.New(slog.NewJSONHandler(out, &opts))
}
