package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spigell/blindmatch/internal/ai"
	"github.com/spigell/blindmatch/internal/ai/gemini"
	"github.com/spigell/blindmatch/internal/chat"
	"github.com/spigell/blindmatch/internal/compat"
	"github.com/spigell/blindmatch/internal/logger"
	"github.com/spigell/blindmatch/internal/matching"
	"github.com/spigell/blindmatch/internal/secrets"
	"github.com/spigell/blindmatch/internal/store"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	providerGemini = "gemini"
	providerNone   = "none"
)

// env is what every command works with.
type env struct {
	config  *Config
	logger  *zap.Logger
	store   *store.Store
	model   *compat.Model
	service *chat.Service
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing the store", zap.Error(err))
	}
}

// setup loads the config, opens the store and wires the chat service. It
// exits the process on failure like the rest of the cli.
func setup(ctx context.Context, withOracle bool) *env {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config.Store == nil || strings.TrimSpace(config.Store.Path) == "" {
		logger.Fatal("store path is required", zap.String("hint", "set store.path or BLINDMATCH_DB"))
	}

	db, err := store.Open(config.Store.Path)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err), zap.String("path", config.Store.Path))
	}

	weights := compat.DefaultWeights()
	if config.Weights != nil {
		weights = *config.Weights
	}
	conversationWeights := compat.DefaultConversationWeights()
	if config.ConversationWeights != nil {
		conversationWeights = *config.ConversationWeights
	}

	matchingConfig := matching.DefaultConfig()
	concurrency := 0
	var pool matching.CandidatePool = db
	if config.Matching != nil {
		matchingConfig.MinimumScore = config.Matching.MinimumScore
		matchingConfig.FallbackScore = config.Matching.FallbackScore
		concurrency = config.Matching.Concurrency
		if config.Matching.VectorTopK > 0 {
			pool = matching.VectorPool{Pool: db, TopK: config.Matching.VectorTopK}
		}
	}

	model := compat.NewModel(weights, nil)

	selector, err := matching.NewSelector(model, matchingConfig, concurrency, logger.With(zap.String("component", "selector")))
	if err != nil {
		logger.Fatal("creating the selector", zap.Error(err))
	}

	var oracle ai.Oracle
	if withOracle {
		oracle, err = newOracle(ctx, config.Oracle, logger)
		if err != nil {
			logger.Fatal("creating the oracle", zap.Error(err), zap.String("hint", "set oracle.provider to none to store messages without analysis"))
		}
		if oracle == nil {
			logger.Warn("oracle is disabled, messages will be stored without analysis")
		}
	}

	service, err := chat.New(db, pool, selector, compat.NewBlender(conversationWeights, nil), oracle,
		chat.Config{RevealThreshold: config.RevealThreshold}, logger)
	if err != nil {
		logger.Fatal("creating the chat service", zap.Error(err))
	}

	return &env{
		config:  config,
		logger:  logger,
		store:   db,
		model:   model,
		service: service,
	}
}

// newOracle builds the configured message analyser. It returns nil without
// an error only for the "none" provider.
func newOracle(ctx context.Context, cfg *OracleConfig, logger *zap.Logger) (ai.Oracle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("oracle is not configured")
	}

	switch strings.TrimSpace(strings.ToLower(cfg.Provider)) {
	case providerNone:
		return nil, nil
	case "", providerGemini:
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("oracle.gemini is not configured")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set oracle.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewAnalyzer(generator, genLogger, cfg.Gemini.MaxLogLength), nil
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
