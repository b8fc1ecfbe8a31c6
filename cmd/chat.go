package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/blindmatch/internal/ai"
	"github.com/spigell/blindmatch/internal/chat"
	"github.com/spigell/blindmatch/internal/logger"
	"github.com/spigell/blindmatch/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptContinue = "Continue the chat"
	PromptPass     = "Pass"
	PromptLater    = "Decide later"
)

var decisionPrompt = promptui.Select{
	Label: "The profile is revealed. What next?",
	Items: []string{PromptContinue, PromptPass, PromptLater},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find the most compatible partner for a user and open a blind chat",
	Run: func(cmd *cobra.Command, _ []string) {
		findMatch(flag(cmd, "user"))
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message in a blind chat and refresh the compatibility",
	Run: func(cmd *cobra.Command, _ []string) {
		send(flag(cmd, "match"), flag(cmd, "user"), flag(cmd, "text"))
	},
}

var revealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Show the partner of a revealed match",
	Run: func(cmd *cobra.Command, _ []string) {
		reveal(flag(cmd, "match"), flag(cmd, "user"))
	},
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Continue or pass after a reveal",
	Run: func(cmd *cobra.Command, _ []string) {
		decide(flag(cmd, "match"), flag(cmd, "user"), flag(cmd, "decision"))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the matches of a user or print one conversation",
	Run: func(cmd *cobra.Command, _ []string) {
		history(flag(cmd, "user"), flag(cmd, "match"))
	},
}

func init() {
	for _, c := range []*cobra.Command{matchCmd, sendCmd, revealCmd, decideCmd, historyCmd} {
		c.Flags().StringP("user", "u", "", "acting user id")
		c.MarkFlagRequired("user")
		rootCmd.AddCommand(c)
	}

	for _, c := range []*cobra.Command{sendCmd, revealCmd, decideCmd} {
		c.Flags().StringP("match", "m", "", "match id")
		c.MarkFlagRequired("match")
	}
	historyCmd.Flags().StringP("match", "m", "", "print the messages of this match")

	sendCmd.Flags().StringP("text", "t", "", "message text")
	sendCmd.MarkFlagRequired("text")

	decideCmd.Flags().String("decision", "", "continue or pass (asked interactively when unset)")
}

func flag(cmd *cobra.Command, name string) string {
	f := cmd.Flag(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}

func findMatch(userID string) {
	ctx := context.Background()
	e := setup(ctx, false)
	defer e.Close()

	m, err := e.service.FindMatch(ctx, userID)
	if err != nil {
		e.logger.Fatal("finding a match", zap.Error(err), zap.String(logger.FieldUser, userID))
	}
	if m == nil {
		e.logger.Info("exiting", zap.String("reason", "no compatible match found"))
		return
	}

	partner, err := e.store.GetProfile(ctx, m.UserB)
	if err != nil {
		e.logger.Fatal("loading partner", zap.Error(err))
	}

	if err := printJSON(map[string]any{
		"match_id":      m.ID,
		"partner":       partner.Name(),
		"compatibility": m.InitialCompatibility,
	}); err != nil {
		e.logger.Fatal("printing match", zap.Error(err))
	}
}

func send(matchID, userID, text string) {
	ctx := context.Background()
	e := setup(ctx, true)
	defer e.Close()

	res, err := e.service.SendMessage(ctx, matchID, userID, text)
	if err != nil {
		var oracleErr *ai.OracleError
		if errors.As(err, &oracleErr) {
			e.logger.Fatal("message was not delivered", zap.Error(err), zap.String("op", oracleErr.Op))
		}
		e.logger.Fatal("sending a message", zap.Error(err))
	}

	if res.RevealTriggered {
		e.logger.Info("profiles can now be revealed", zap.String(logger.FieldMatch, matchID))
	}

	if err := printJSON(map[string]any{
		"message_id":    res.Message.ID,
		"compatibility": res.Match.CurrentCompatibility,
		"status":        res.Match.Status,
		"revealed":      res.RevealTriggered,
	}); err != nil {
		e.logger.Fatal("printing result", zap.Error(err))
	}
}

func reveal(matchID, userID string) {
	ctx := context.Background()
	e := setup(ctx, false)
	defer e.Close()

	revealed, err := e.service.Reveal(ctx, matchID, userID)
	if err != nil {
		e.logger.Fatal("revealing the partner", zap.Error(err))
	}

	if err := printJSON(map[string]any{
		"partner":    revealed.Partner,
		"highlights": revealed.Highlights,
	}); err != nil {
		e.logger.Fatal("printing partner", zap.Error(err))
	}
}

func decide(matchID, userID, decision string) {
	ctx := context.Background()
	e := setup(ctx, false)
	defer e.Close()

	if decision == "" {
		_, action, err := decisionPrompt.Run()
		if err != nil {
			e.logger.Fatal("exiting", zap.Error(err))
		}
		switch action {
		case PromptContinue:
			decision = string(store.DecisionContinue)
		case PromptPass:
			decision = string(store.DecisionPass)
		default:
			e.logger.Info("exiting", zap.String("reason", "decision postponed"))
			return
		}
	}

	m, err := e.service.Decide(ctx, matchID, userID, store.Decision(decision))
	if err != nil {
		if errors.Is(err, chat.ErrInvalidState) {
			e.logger.Fatal("decisions are only accepted after a reveal", zap.Error(err))
		}
		e.logger.Fatal("recording the decision", zap.Error(err))
	}

	e.logger.Info("decision recorded", zap.String("status", string(m.Status)))
}

func history(userID, matchID string) {
	ctx := context.Background()
	e := setup(ctx, false)
	defer e.Close()

	if matchID != "" {
		m, messages, err := e.service.Conversation(ctx, matchID, userID)
		if err != nil {
			e.logger.Fatal("loading the conversation", zap.Error(err))
		}
		for _, msg := range messages {
			who := "them"
			if msg.SenderID == userID {
				who = "you"
			}
			fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Format("2006-01-02 15:04"), who, msg.Content)
		}
		e.logger.Info("conversation", zap.String("status", string(m.Status)), zap.Float64("compatibility", m.CurrentCompatibility))
		return
	}

	summaries, err := e.service.History(ctx, userID)
	if err != nil {
		e.logger.Fatal("loading history", zap.Error(err))
	}

	rows := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, map[string]any{
			"match_id":      s.Match.ID,
			"partner":       s.PartnerPseudonym,
			"status":        s.Match.Status,
			"compatibility": s.Match.CurrentCompatibility,
			"created_at":    s.Match.CreatedAt,
		})
	}

	if err := printJSON(rows); err != nil {
		e.logger.Fatal("printing history", zap.Error(err))
	}
}
