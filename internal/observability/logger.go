package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	logs "github.com/danmuck/duploctl/internal/logging"
)

// InitLogger applies the runtime log profile and returns a logger tagged
// with app. The zerolog global logger is replaced with it.
func InitLogger(app string) zerolog.Logger {
	logs.ConfigureRuntime()
	logger := logs.Logger().With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
