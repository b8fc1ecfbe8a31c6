package cmd

import (
	"context"
	"fmt"

	"github.com/spigell/blindmatch/internal/logger"
	"github.com/spigell/blindmatch/internal/profile"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import or update profiles from a yaml, json or toml file with a top level 'profiles' list",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		importProfiles(args[0])
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <user> <user>",
	Short: "Print the static compatibility of two stored profiles",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		score(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(scoreCmd)
}

func importProfiles(path string) {
	ctx := context.Background()
	e := setup(ctx, false)
	defer e.Close()

	profiles, err := readProfiles(path)
	if err != nil {
		e.logger.Fatal("reading profiles", zap.Error(err), zap.String("file", path))
	}

	for _, p := range profiles {
		if err := e.store.UpsertProfile(ctx, p); err != nil {
			e.logger.Fatal("saving profile", zap.Error(err))
		}
		e.logger.Debug("profile imported",
			zap.String(logger.FieldUser, p.ID),
			zap.String("status", string(p.Status)),
			zap.Bool("complete", p.Complete()),
		)
	}

	e.logger.Info("profiles imported", zap.Int("count", len(profiles)), zap.String("file", path))
}

// readProfiles decodes every entry of the file leniently. Entries without an
// id are rejected; a complete profile without a status is made active.
func readProfiles(path string) ([]profile.Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	raw, ok := v.Get("profiles").([]any)
	if !ok {
		return nil, fmt.Errorf("%s has no 'profiles' list", path)
	}

	profiles := make([]profile.Profile, 0, len(raw))
	for i, item := range raw {
		attrs, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("profile #%d is not an object", i)
		}

		p := profile.FromAttributes(attrs)
		if p.ID == "" {
			return nil, fmt.Errorf("profile #%d has no id", i)
		}
		if p.Status == "" && p.Complete() {
			p.Status = profile.StatusActive
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

func score(a, b string) {
	ctx := context.Background()
	e := setup(ctx, false)
	defer e.Close()

	userA, err := e.store.GetProfile(ctx, a)
	if err != nil {
		e.logger.Fatal("loading profile", zap.Error(err), zap.String(logger.FieldUser, a))
	}
	userB, err := e.store.GetProfile(ctx, b)
	if err != nil {
		e.logger.Fatal("loading profile", zap.Error(err), zap.String(logger.FieldUser, b))
	}

	value, details := e.model.Score(userA, userB)

	if err := printJSON(map[string]any{"score": value, "details": details}); err != nil {
		e.logger.Fatal("printing score", zap.Error(err))
	}
}
