package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/corey-beep/email-agent/internal/config"
	"github.com/corey-beep/email-agent/internal/llm"
	"github.com/corey-beep/email-agent/internal/mailstore"
	"github.com/corey-beep/email-agent/internal/triage"
)

var (
	cfg     *config.Config
	log     *zap.Logger
	agent   *triage.Agent
	rootCtx context.Context
	stdin   = bufio.NewReader(os.Stdin)
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "email-agent",
	Short: "AI-powered email assistant using local LLMs",
	Long: `email-agent triages an IMAP inbox with a local language model.

Available workflows:
  email-agent status     check mailbox and LLM connectivity
  email-agent digest     generate a daily digest of unread mail
  email-agent inbox      summarize and classify recent messages
  email-agent organize   route messages into matching folders
  email-agent clean      find and delete junk, grouped by sender
  email-agent reply      draft a reply to a recent message`,
}

// Execute wires the capabilities together and runs the CLI.
func Execute(c *config.Config, logger *zap.Logger) error {
	cfg = c
	log = logger

	promptPasswordIfMissing()

	store := mailstore.NewClient(cfg.Email, log)
	completion := llm.NewClient(cfg.LLM, log)
	agent = triage.New(store, completion, cfg.Agent, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rootCtx = ctx

	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(inboxCmd)
	rootCmd.AddCommand(organizeCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(replyCmd)
}

// promptPasswordIfMissing asks for the mailbox password on the terminal
// when the environment does not provide one.
func promptPasswordIfMissing() {
	if cfg.Email.Password != "" || cfg.Email.Address == "" {
		return
	}
	fmt.Printf("Password for %s: ", cfg.Email.Address)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return
	}
	cfg.Email.Password = string(passwordBytes)
}

// promptLine reads one trimmed line from stdin.
func promptLine(prompt string) string {
	fmt.Print(prompt)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// confirm asks a yes/no question; empty input takes the default.
func confirm(prompt string, def bool) bool {
	suffix := " [y/N] "
	if def {
		suffix = " [Y/n] "
	}
	answer := strings.ToLower(promptLine(prompt + suffix))
	if answer == "" {
		return def
	}
	return answer == "y" || answer == "yes"
}
