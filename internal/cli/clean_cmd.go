package cli

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey-beep/email-agent/internal/display"
	"github.com/corey-beep/email-agent/internal/triage"
)

var cleanLimit int

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Find and delete junk, grouped by sender",
	Run: runE(func(cmd *cobra.Command, args []string) error {
		fmt.Println("Analyzing emails for deletable content...")
		display.SubHeader("This may take a moment as each email is evaluated by the LLM.")

		scan, err := agent.FindDeletable(rootCtx, cleanLimit)
		if err != nil {
			return err
		}
		if scan.Total() == 0 {
			display.SuccessMsg("No deletable emails found! Your inbox is clean.")
			return nil
		}

		fmt.Printf("Found %d deletable email(s) from %d sender(s)\n\n", scan.Total(), len(scan.Groups))
		printScan(scan)
		cleanLoop(scan)
		return nil
	}),
}

func printScan(scan *triage.DeletionScan) {
	for n, group := range scan.Groups {
		display.Header(fmt.Sprintf("Sender %d: %s", n+1, display.Truncate(group.Sender, 60)))
		rows := make([][]string, 0, len(group.Emails))
		for m, candidate := range group.Emails {
			rows = append(rows, []string{
				fmt.Sprintf("%d.%d", n+1, m+1),
				display.Truncate(candidate.Email.Subject, 40),
				display.Truncate(candidate.Preview, 50),
			})
		}
		fmt.Println(display.Table([]string{"#", "Subject", "Preview"}, rows))
	}
}

// cleanLoop runs the interactive deletion session over a scan. Invalid
// input is reported and ignored; the scan itself stays consistent so
// the session can continue.
func cleanLoop(scan *triage.DeletionScan) {
	for scan.Total() > 0 {
		display.Header("Actions:")
		fmt.Println("  <sender#>         delete all from that sender (e.g. '1')")
		fmt.Println("  <sender#.email#>  delete a single email (e.g. '1.2')")
		fmt.Println("  all               delete every deletable email")
		fmt.Println("  done              exit cleanup")

		action := strings.ToLower(promptLine("\nAction: "))
		switch {
		case action == "done":
			return

		case action == "all":
			if !confirm(fmt.Sprintf("Delete ALL %d emails?", scan.Total()), false) {
				continue
			}
			var ids []string
			for _, group := range scan.Groups {
				for _, candidate := range group.Emails {
					ids = append(ids, candidate.Email.ID)
				}
			}
			deleted := agent.DeleteBySender(ids)
			display.SuccessMsg("Deleted %d email(s)", deleted)
			return

		case strings.Contains(action, "."):
			senderNum, emailNum, ok := parseIndexPair(action)
			if !ok {
				display.ErrorMsg("Invalid format. Use sender#.email# (e.g. 1.2)")
				continue
			}
			candidate, err := scan.Email(senderNum, emailNum)
			if err != nil {
				display.ErrorMsg("Invalid selection")
				continue
			}
			if !confirm(fmt.Sprintf("Delete '%s'?", display.Truncate(candidate.Email.Subject, 40)), true) {
				continue
			}
			if agent.DeleteOne(candidate.Email.ID) {
				scan.RemoveEmail(senderNum, emailNum)
				display.SuccessMsg("Deleted!")
				printScan(scan)
			} else {
				display.ErrorMsg("Failed to delete")
			}

		default:
			senderNum, err := strconv.Atoi(action)
			if err != nil {
				display.ErrorMsg("Invalid input")
				continue
			}
			group, gerr := scan.Group(senderNum)
			if gerr != nil {
				display.ErrorMsg("Invalid sender number")
				continue
			}
			if !confirm(fmt.Sprintf("Delete all %d email(s) from %s?",
				len(group.Emails), display.Truncate(group.Sender, 40)), true) {
				continue
			}
			ids := make([]string, 0, len(group.Emails))
			for _, candidate := range group.Emails {
				ids = append(ids, candidate.Email.ID)
			}
			deleted := agent.DeleteBySender(ids)
			scan.RemoveGroup(senderNum)
			display.SuccessMsg("Deleted %d email(s)", deleted)
			printScan(scan)
		}
	}
	display.SuccessMsg("Nothing left to clean.")
}

func parseIndexPair(action string) (int, int, bool) {
	left, right, found := strings.Cut(action, ".")
	if !found {
		return 0, 0, false
	}
	senderNum, err1 := strconv.Atoi(left)
	emailNum, err2 := strconv.Atoi(right)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return senderNum, emailNum, true
}

var replyCmd = &cobra.Command{
	Use:   "reply",
	Short: "Draft a reply to a recent message",
	Run: runE(func(cmd *cobra.Command, args []string) error {
		fmt.Println("Fetching recent emails...")
		records := agent.Recent(5)
		if len(records) == 0 {
			display.SubHeader("No emails found.")
			return nil
		}

		rows := make([][]string, 0, len(records))
		for i, rec := range records {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				display.Truncate(rec.Subject, 50),
				display.Truncate(rec.Sender, 30),
			})
		}
		fmt.Println(display.Table([]string{"#", "Subject", "From"}, rows))

		choice, err := strconv.Atoi(promptLine("Which email to reply to? "))
		if err != nil || choice < 1 || choice > len(records) {
			return triage.ErrInvalidSelection
		}
		rec := records[choice-1]

		instructions := promptLine("Any specific instructions? (or press Enter to skip) ")

		fmt.Println("\nDrafting reply...")
		reply := agent.DraftReply(rootCtx, rec, instructions)
		fmt.Println(display.Panel("Draft Reply", reply))

		if confirm("Send this reply?", false) {
			to := replyAddress(rec.Sender)
			if to == "" {
				display.ErrorMsg("Could not determine a reply address")
				return nil
			}
			subject := rec.Subject
			if !strings.HasPrefix(strings.ToLower(subject), "re:") {
				subject = "Re: " + subject
			}
			if agent.SendMessage(to, subject, reply) {
				display.SuccessMsg("Reply sent to %s", to)
			} else {
				display.ErrorMsg("Failed to send reply")
			}
		}
		return nil
	}),
}

// replyAddress extracts the bare address from a decoded From header.
func replyAddress(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		return addr.Address
	}
	if strings.Contains(sender, "@") {
		return strings.Trim(sender, "<> ")
	}
	return ""
}

func init() {
	cleanCmd.Flags().IntVar(&cleanLimit, "limit", triage.DefaultCleanLimit, "how many emails to scan")
}
