//go:build wireinject

package app

import (
	"log/slog"
	"net/http"

	"github.com/edwinttmm/Testing-sub002/internal/conf"
	"github.com/edwinttmm/Testing-sub002/internal/data"
	"github.com/edwinttmm/Testing-sub002/internal/web/api"
	"github.com/google/wire"
)

func wireApp(bc *conf.Bootstrap, log *slog.Logger) (http.Handler, func(), error) {
	panic(wire.Build(data.ProviderSet, api.ProviderSet))
}
