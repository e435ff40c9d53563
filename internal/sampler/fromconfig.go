package sampler

import (
	"github.com/rs/zerolog"

	"github.com/strobelabs/strobe/internal/config"
	"github.com/strobelabs/strobe/internal/threads"
)

// FromConfig constructs the session's selector from user configuration.
// Ids, names, and patterns each contribute a child selector; more than
// one contribution becomes a Combination. An empty selection samples
// everything.
func FromConfig(cfg config.ThreadsConfig, enum threads.Enumerator, logger zerolog.Logger) Selector {
	if !cfg.Selection() {
		return NewAll()
	}

	var parts []Selector
	if len(cfg.IDs) > 0 {
		parts = append(parts, NewSpecific(cfg.IDs))
	}
	if len(cfg.Names) > 0 {
		s := NewSpecificByName(enum, cfg.Names)
		if len(s.ids) == 0 {
			logger.Warn().Strs("names", cfg.Names).Msg("No live threads matched the requested names")
		}
		parts = append(parts, s)
	}
	if len(cfg.Patterns) > 0 {
		for _, expr := range cfg.Patterns {
			if _, err := compileNamePattern(expr); err != nil {
				logger.Warn().Err(err).Str("pattern", expr).Msg("Ignoring invalid thread name pattern")
			}
		}
		parts = append(parts, NewRegex(enum, cfg.Patterns))
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return NewCombination(parts...)
}
