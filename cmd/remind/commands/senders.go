package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Kbediako/Ambient-Email-Agent/internal/reputation"
)

var sendersCmd = &cobra.Command{
	Use:   "senders",
	Short: "Inspect and manage sender reputation",
}

var sendersShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the persisted sender reputation profile",
	RunE:  runSendersShow,
}

var (
	noteReason string
)

var sendersTrustCmd = &cobra.Command{
	Use:   "trust <email>",
	Short: "Mark a sender as trusted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSendersNote(args[0], reputation.StatusTrusted)
	},
}

var sendersFlagCmd = &cobra.Command{
	Use:   "flag <email>",
	Short: "Flag a sender as risky",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSendersNote(args[0], reputation.StatusFlagged)
	},
}

var (
	assessSubject string
	assessBody    string
)

var sendersAssessCmd = &cobra.Command{
	Use:   "assess <author>",
	Short: "Run a risk assessment for a message author",
	Long: `Evaluate the author header of an incoming message against the stored
reputation profile and print the resulting risk level.`,
	Args: cobra.ExactArgs(1),
	RunE: runSendersAssess,
}

func init() {
	sendersTrustCmd.Flags().StringVarP(&noteReason, "reason", "r", "",
		"Reason recorded with the override")
	sendersFlagCmd.Flags().StringVarP(&noteReason, "reason", "r", "",
		"Reason recorded with the override")

	sendersAssessCmd.Flags().StringVarP(&assessSubject, "subject", "s",
		"", "Message subject used for keyword analysis")
	sendersAssessCmd.Flags().StringVarP(&assessBody, "body", "b", "",
		"Message body used for keyword analysis")

	sendersCmd.AddCommand(sendersShowCmd)
	sendersCmd.AddCommand(sendersTrustCmd)
	sendersCmd.AddCommand(sendersFlagCmd)
	sendersCmd.AddCommand(sendersAssessCmd)
}

func runSendersShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	gate, closeStore, err := getReputationGate()
	if err != nil {
		return err
	}
	defer closeStore()

	profile := gate.ProfileSnapshot(ctx)

	if outputFormat == "json" {
		return outputJSON(profile)
	}

	printPartition := func(title string,
		records map[string]reputation.SenderRecord) {

		fmt.Printf("%s (%d):\n", title, len(records))

		emails := make([]string, 0, len(records))
		for email := range records {
			emails = append(emails, email)
		}
		sort.Strings(emails)

		for _, email := range emails {
			record := records[email]
			fmt.Printf("  %s [%s]", email, record.Status)
			if record.Reason != "" {
				fmt.Printf(" - %s", record.Reason)
			}
			fmt.Println()
		}
	}

	printPartition("Known senders", profile.Known)
	printPartition("Flagged senders", profile.Flagged)

	return nil
}

func runSendersNote(author, status string) error {
	ctx := context.Background()

	gate, closeStore, err := getReputationGate()
	if err != nil {
		return err
	}
	defer closeStore()

	email := reputation.ExtractEmail(author)
	if email == "" {
		return fmt.Errorf("no email address in %q", author)
	}

	gate.NoteSender(ctx, email, status, noteReason)

	fmt.Printf("Recorded %s as %s\n", email, status)

	return nil
}

func runSendersAssess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	gate, closeStore, err := getReputationGate()
	if err != nil {
		return err
	}
	defer closeStore()

	assessment := gate.AssessSender(
		ctx, args[0], assessSubject, assessBody,
	)

	if outputFormat == "json" {
		return outputJSON(assessment)
	}

	fmt.Printf("%s: risk=%s status=%s\n  %s\n",
		assessment.Email, assessment.RiskLevel, assessment.Status,
		assessment.Reason,
	)

	return nil
}
