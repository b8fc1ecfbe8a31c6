package cmd

import (
	"errors"
	"log"

	"github.com/spigell/blindmatch/internal/chat"
	"github.com/spigell/blindmatch/internal/compat"
	"github.com/spigell/blindmatch/internal/matching"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "blindmatch"
)

type Config struct {
	Store               *StoreConfig                `mapstructure:"store"`
	Matching            *MatchingConfig             `mapstructure:"matching"`
	RevealThreshold     float64                     `mapstructure:"reveal-threshold"`
	Weights             *compat.Weights             `mapstructure:"weights"`
	ConversationWeights *compat.ConversationWeights `mapstructure:"conversation-weights"`
	Oracle              *OracleConfig               `mapstructure:"oracle"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type MatchingConfig struct {
	MinimumScore  float64 `mapstructure:"minimum-score"`
	FallbackScore float64 `mapstructure:"fallback-score"`
	Concurrency   int     `mapstructure:"concurrency"`
	VectorTopK    int     `mapstructure:"vector-top-k"`
}

type OracleConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "blindmatch pairs people by compatibility and reveals them once their conversation clicks",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("store.path", "BLINDMATCH_DB"); err != nil {
		log.Fatalf("binding BLINDMATCH_DB environment variable: %v", err)
	}
	if err := viper.BindEnv("oracle.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is blindmatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	matchingDefaults := matching.DefaultConfig()
	weights := compat.DefaultWeights()
	conversationWeights := compat.DefaultConversationWeights()

	viper.SetDefault("store.path", app+".db")
	viper.SetDefault("matching.minimum-score", matchingDefaults.MinimumScore)
	viper.SetDefault("matching.fallback-score", matchingDefaults.FallbackScore)
	viper.SetDefault("matching.concurrency", 8)
	viper.SetDefault("matching.vector-top-k", 0)
	viper.SetDefault("reveal-threshold", chat.DefaultRevealThreshold)

	viper.SetDefault("weights.values-alignment", weights.ValuesAlignment)
	viper.SetDefault("weights.interest-overlap", weights.InterestOverlap)
	viper.SetDefault("weights.personality-fit", weights.PersonalityFit)
	viper.SetDefault("weights.preference-match", weights.PreferenceMatch)
	viper.SetDefault("weights.complementary-traits", weights.ComplementaryTraits)

	viper.SetDefault("conversation-weights.engagement", conversationWeights.Engagement)
	viper.SetDefault("conversation-weights.depth", conversationWeights.Depth)
	viper.SetDefault("conversation-weights.humor-compatibility", conversationWeights.HumorCompatibility)
	viper.SetDefault("conversation-weights.value-discovery", conversationWeights.ValueDiscovery)
	viper.SetDefault("conversation-weights.conflict-handling", conversationWeights.ConflictHandling)
	viper.SetDefault("conversation-weights.mutual-curiosity", conversationWeights.MutualCuriosity)

	viper.SetDefault("oracle.provider", providerGemini)
	viper.SetDefault("oracle.gemini.max-retries", 3)
	viper.SetDefault("oracle.gemini.max-log-length", 200)
}

func initConfig() {
	// version does not need any config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	// Without an explicit --config the defaults are enough to run.
	if err != nil && (cfgFile != "" || !errors.As(err, &notFound)) {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		return nil, errors.New("config is empty")
	}
	if config.Weights != nil {
		if err := config.Weights.Validate(); err != nil {
			return nil, err
		}
	}
	if config.ConversationWeights != nil {
		if err := config.ConversationWeights.Validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}
