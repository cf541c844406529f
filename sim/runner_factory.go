package sim

import (
	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/internal/engine"
)

// BuildRunner 用内存交易所组装一个可回放的 Runner；回放不限频。
func BuildRunner(p engine.Params, log *logger.Logger) (*Runner, error) {
	if log == nil {
		log = logger.NewNop()
	}
	p.ThrottleRate = 0
	venue := NewVenue()
	eng, err := engine.Build(p, engine.Options{Gateway: venue, Logger: log})
	if err != nil {
		return nil, err
	}
	return &Runner{Engine: eng, Venue: venue, Logger: log.Named("replay")}, nil
}
