package ledger

import (
	"fmt"
	"io"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"

	"github.com/tac0turtle/pokeledger/config"
)

// NewLogger builds the ledger logger for cfg writing to w
func NewLogger(cfg config.LogConfig, w io.Writer) (log.Logger, error) {
	if cfg.Level == "disabled" {
		return log.NewNopLogger(), nil
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	return log.NewLogger(w, log.LevelOption(level), log.ColorOption(false)).With("module", "ledger"), nil
}
