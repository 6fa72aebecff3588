package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/careerscope/careerscope/internal/config"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a conversation transcript for career signals",
	Long: `Analyze a conversation transcript for career signals.

Examples:
  careerscope analyze --user alice --text "user: I love biology and helping people"
  careerscope analyze --user alice --file ./transcript.txt
  careerscope analyze --user alice --pdf ./transcript.pdf --reason "session end"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		text, _ := cmd.Flags().GetString("text")
		file, _ := cmd.Flags().GetString("file")
		pdfPath, _ := cmd.Flags().GetString("pdf")
		reason, _ := cmd.Flags().GetString("reason")

		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		req := map[string]any{
			"userId":        userID,
			"triggerReason": reason,
		}
		switch {
		case pdfPath != "":
			data, err := os.ReadFile(pdfPath)
			if err != nil {
				return fmt.Errorf("reading PDF: %w", err)
			}
			req["transcriptPdf"] = base64.StdEncoding.EncodeToString(data)
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			req["conversationHistory"] = string(data)
		case text != "":
			req["conversationHistory"] = text
		default:
			return fmt.Errorf("one of --text, --file, or --pdf is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Analyzing conversation for %s...", userID)
		resp, err := client.post(cmd.Context(), "/analyze", req)
		if err != nil {
			return err
		}

		var result struct {
			Analysis struct {
				UserProfile struct {
					Interests   []string `json:"interests"`
					Skills      []string `json:"skills"`
					CareerStage string   `json:"careerStage"`
				} `json:"userProfile"`
				CareerCards []struct {
					Title    string `json:"title"`
					Industry string `json:"industry"`
				} `json:"careerCards"`
			} `json:"analysis"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Analysis complete")
		printStatus("Interests", "%s", strings.Join(result.Analysis.UserProfile.Interests, ", "))
		printStatus("Skills", "%s", strings.Join(result.Analysis.UserProfile.Skills, ", "))
		printStatus("Career stage", "%s", result.Analysis.UserProfile.CareerStage)
		for _, c := range result.Analysis.CareerCards {
			fmt.Printf("  %s (%s)\n", colorize(colorBold, c.Title), c.Industry)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("user", "", "user id the conversation belongs to")
	analyzeCmd.Flags().String("text", "", "transcript text (role: content lines)")
	analyzeCmd.Flags().String("file", "", "path to a transcript file")
	analyzeCmd.Flags().String("pdf", "", "path to a transcript PDF")
	analyzeCmd.Flags().String("reason", "cli", "why analysis was requested")
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile <user>",
	Short: "Show a user's career profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile/"+args[0])
		if err != nil {
			return err
		}

		var p map[string]any
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

// --- cards ---

var cardsCmd = &cobra.Command{
	Use:   "cards <user>",
	Short: "List a user's career cards",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/cards/"+args[0])
		if err != nil {
			return err
		}

		var cards []struct {
			Title       string  `json:"title"`
			Industry    string  `json:"industry"`
			Description string  `json:"description"`
			Confidence  float64 `json:"confidence"`
		}
		if err := decodeJSON(resp, &cards); err != nil {
			return err
		}

		if len(cards) == 0 {
			fmt.Println("No career cards yet.")
			return nil
		}
		for _, c := range cards {
			fmt.Printf("\n%s (%s) [confidence: %.2f]\n", colorize(colorBold, c.Title), c.Industry, c.Confidence)
			desc := c.Description
			if len(desc) > 300 {
				desc = desc[:300] + "..."
			}
			fmt.Printf("  %s\n", desc)
		}
		return nil
	},
}

// --- insights ---

var insightsCmd = &cobra.Command{
	Use:   "insights <field> [field...]",
	Short: "Generate practical briefings for career fields",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Generating insights for %s...", strings.Join(args, ", "))
		resp, err := client.post(cmd.Context(), "/insights", map[string]any{"interests": args})
		if err != nil {
			return err
		}

		var result struct {
			CareerCards []struct {
				Title           string   `json:"title"`
				Description     string   `json:"description"`
				SalaryRange     string   `json:"salaryRange"`
				TrainingPathway string   `json:"trainingPathway"`
				NextSteps       []string `json:"nextSteps"`
			} `json:"careerCards"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, ins := range result.CareerCards {
			fmt.Printf("\n%s\n", colorize(colorBold, ins.Title))
			fmt.Printf("  %s\n", ins.Description)
			if ins.SalaryRange != "" {
				printStatus("Salary", "%s", ins.SalaryRange)
			}
			if ins.TrainingPathway != "" {
				printStatus("Training", "%s", ins.TrainingPathway)
			}
			for _, step := range ins.NextSteps {
				fmt.Printf("    - %s\n", step)
			}
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
