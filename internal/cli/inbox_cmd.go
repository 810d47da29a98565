package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey-beep/email-agent/internal/display"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check mailbox and LLM connectivity",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Checking connections...")
		status := agent.CheckConnections(rootCtx)

		fmt.Println(display.StatusLine("Email (IMAP)", status.Email))
		fmt.Println(display.StatusLine("LLM", status.LLM))

		if !status.Ready {
			if !status.Email {
				display.ErrorMsg("Email connection failed. Check your .env configuration.")
			}
			if !status.LLM {
				display.ErrorMsg("LLM connection failed. Is Ollama running?")
				display.SubHeader("Start Ollama with: ollama serve")
			}
			os.Exit(1)
		}
		display.SuccessMsg("Ready")
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Generate a daily digest of unread mail",
	Run: runE(func(cmd *cobra.Command, args []string) error {
		fmt.Println("Generating daily digest...")
		digest, err := agent.DailyDigest(rootCtx)
		if err != nil {
			return err
		}
		fmt.Println(digest)
		return nil
	}),
}

var (
	inboxLimit int
	inboxAll   bool
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Summarize and classify recent messages",
	Run: runE(func(cmd *cobra.Command, args []string) error {
		fmt.Println("Fetching and analyzing emails...")
		summaries, err := agent.InboxSummary(rootCtx, inboxLimit, !inboxAll)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			display.SubHeader("No emails found.")
			return nil
		}

		for i, s := range summaries {
			title := fmt.Sprintf("%s  Email %d/%d", display.PriorityLabel(s.Priority), i+1, len(summaries))
			content := fmt.Sprintf("%s\nFrom: %s\nDate: %s\n\nSummary: %s\n\nCategory: %s\nAction Items:\n%s",
				display.Bold.Render(s.Email.Subject),
				display.Dim.Render(s.Email.Sender),
				display.Dim.Render(s.Email.Date),
				s.Summary, s.Category, s.ActionItems)
			fmt.Println(display.Panel(title, content))
		}
		return nil
	}),
}

var organizeApply bool

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Route messages into matching folders",
	Long: `Categorizes recent messages and matches each category against the
mailbox's folder names. Without --apply this is a dry run: the plan is
printed and nothing is moved.`,
	Run: runE(func(cmd *cobra.Command, args []string) error {
		fmt.Println("Analyzing emails for organization...")
		actions, err := agent.OrganizeInbox(rootCtx, !organizeApply)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(actions))
		for _, r := range actions {
			status := "dry run"
			switch {
			case r.TargetFolder == "":
				status = "no folder match"
			case r.Moved:
				status = "moved"
			case organizeApply:
				status = "move failed"
			}
			target := r.TargetFolder
			if target == "" {
				target = "-"
			}
			rows = append(rows, []string{
				display.Truncate(r.Subject, 40), r.Category, target, status,
			})
		}
		fmt.Println(display.Table([]string{"Subject", "Category", "Target Folder", "Status"}, rows))
		return nil
	}),
}

// runE wraps a RunE-style body so failures print and exit without cobra's
// usage text.
func runE(run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := run(cmd, args); err != nil {
			display.ErrorMsg("%v", err)
			os.Exit(1)
		}
	}
}

func init() {
	inboxCmd.Flags().IntVar(&inboxLimit, "limit", 0, "how many emails to fetch (default: configured max)")
	inboxCmd.Flags().BoolVar(&inboxAll, "all", false, "include already-read emails")
	organizeCmd.Flags().BoolVar(&organizeApply, "apply", false, "actually move messages (default is a dry run)")
}
