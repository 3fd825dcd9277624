package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"versionrank/internal/feedback"
	"versionrank/internal/service"
	"versionrank/internal/tui"
)

var (
	searchPolicy   string
	searchNoReview bool
	fbVersion      string
	fbRelevant     bool
	reviewName     string
	rewriteOutput  string
)

func init() {
	searchCmd.Flags().StringVar(&searchPolicy, "policy", "", "Ranking policy: learned, lexical or blend (defaults to config)")
	searchCmd.Flags().BoolVar(&searchNoReview, "no-review", false, "Print the best version without asking for feedback")

	feedbackCmd.Flags().StringVar(&fbVersion, "version", "", "ID of the version being judged (required)")
	feedbackCmd.Flags().BoolVar(&fbRelevant, "relevant", false, "Whether the version was relevant to the query")
	_ = feedbackCmd.MarkFlagRequired("version")
	_ = feedbackCmd.MarkFlagRequired("relevant")

	reviewCmd.Flags().StringVar(&reviewName, "name", "", "File name for the accepted version (default edited_<timestamp>.txt)")
	rewriteCmd.Flags().StringVar(&rewriteOutput, "output", "", "File name for the rewrite (default final_<timestamp>.txt)")
}

var addCmd = &cobra.Command{
	Use:   "add <file|glob>...",
	Short: "Store .txt files as versions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()
		versions, err := a.svc.Ingest(cmd.Context(), args)
		for _, v := range versions {
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", v.ID, v.Filename)
		}
		return err
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Show the best version for a query and ask whether it was relevant",
	Long: `Search retrieves candidate versions for the query, ranks them under the
configured policy and prints the best one. Unless --no-review is given it then
asks "Was this relevant? (y/n)" and records the answer.

Examples:
  versionrank search betrayal chief
  versionrank search --policy lexical --no-review betrayal chief`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	a, err := newApp(ctx, appOptions{judge: feedback.NewConsoleJudge(cmd.InOrStdin(), out)})
	if err != nil {
		return err
	}
	defer a.close()

	query := strings.Join(args, " ")
	var sel service.Selection
	if searchPolicy != "" {
		sel, err = a.svc.SearchWithPolicy(ctx, query, searchPolicy)
	} else {
		sel, err = a.svc.Search(ctx, query)
	}
	if err != nil {
		return err
	}
	if !sel.Found() {
		fmt.Fprintln(out, sel.Text)
		return nil
	}
	fmt.Fprintf(out, "Best version (%s policy, score %.3f):\n\n%s\n", sel.Policy, sel.Candidates[0].Score, sel.Text)
	if sel.Preview != "" && sel.Preview != strings.TrimSpace(sel.Text) {
		fmt.Fprintf(out, "\nPreview: %s\n", sel.Preview)
	}
	if searchNoReview {
		return nil
	}
	relevant, err := a.svc.Review(ctx, sel)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Recorded feedback: relevant=%t\n", relevant)
	return nil
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <query>...",
	Short: "Record a relevance judgment for a stored version",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{judge: feedback.NewScriptedJudge(fbRelevant)})
		if err != nil {
			return err
		}
		defer a.close()
		v, ok, err := a.store.Get(ctx, fbVersion)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("version %q not found", fbVersion)
		}
		query := strings.Join(args, " ")
		if _, err := a.svc.Review(ctx, service.Selection{Query: query, Text: v.Text}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded feedback for %s: relevant=%t\n", v.ID, fbRelevant)
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review <file>",
	Short: "Accept a human-reviewed text as a new version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()
		v, err := a.svc.AcceptVersion(cmd.Context(), string(data), reviewName)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Accepted %s (%s)\n", v.ID, v.Filename)
		return nil
	},
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <chapter.txt>",
	Short: "Rewrite a chapter with the configured model and store the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{withRewriter: true})
		if err != nil {
			return err
		}
		defer a.close()
		v, cached, err := a.svc.RewriteAndStore(cmd.Context(), args[0], rewriteOutput)
		if err != nil {
			return err
		}
		if cached {
			fmt.Fprintf(cmd.OutOrStdout(), "Reused existing %s\n", v.Filename)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Stored rewrite as %s\n", v.Filename)
		}
		return nil
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive search and feedback",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()
		m := tui.New(cmd.Context(), a.svc, a.svc.Policy())
		_, err = tea.NewProgram(m).Run()
		return err
	},
}

var valuesCmd = &cobra.Command{
	Use:   "values",
	Short: "Print the learned value table as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()
		data, err := json.MarshalIndent(a.svc.Values(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}
