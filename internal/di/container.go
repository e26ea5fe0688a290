package di

import (
	"fmt"

	"recovery-agent/internal/application/port/input"
	"recovery-agent/internal/application/port/output"
	"recovery-agent/internal/application/service"
	"recovery-agent/internal/domain/entity"
	"recovery-agent/internal/infrastructure/llm/openrouter"
	"recovery-agent/internal/infrastructure/logger"
	"recovery-agent/internal/infrastructure/monitor"
	"recovery-agent/internal/usecase/recovery"
)

type Container struct {
	Oracle    output.OraclePort
	Logger    output.LoggerPort
	Monitor   output.MonitorPort
	Screens   *service.ScreenRegistry
	Recoverer input.ElementRecoverer
}

type Config struct {
	OpenRouterAPIKey    string
	OpenRouterModel     string
	Platform            string
	MaxWindows          int
	WindowSize          int
	SnapshotLimit       int
	SimilarityThreshold float64
}

func NewContainer(cfg Config) (*Container, error) {
	log, err := logger.NewLoggerAdapter("recovery")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	oracleCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	oracleCfg.Logger = log
	oracle := openrouter.NewOpenRouterAdapter(oracleCfg)

	screens := service.NewScreenRegistry()

	engineCfg := recovery.DefaultConfig()
	if p, perr := entity.ParsePlatform(cfg.Platform); perr == nil {
		engineCfg.Platform = p
	}
	if cfg.MaxWindows > 0 {
		engineCfg.MaxWindows = cfg.MaxWindows
	}
	if cfg.WindowSize > 0 {
		engineCfg.WindowSize = cfg.WindowSize
	}
	if cfg.SnapshotLimit > 0 {
		engineCfg.SnapshotLimit = cfg.SnapshotLimit
	}
	if cfg.SimilarityThreshold > 0 {
		engineCfg.SimilarityThreshold = cfg.SimilarityThreshold
	}

	mon := monitor.NopMonitor{}
	engine := recovery.NewEngine(engineCfg, oracle, log, mon, screens)

	return &Container{
		Oracle:    oracle,
		Logger:    log,
		Monitor:   mon,
		Screens:   screens,
		Recoverer: engine,
	}, nil
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
