package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/score"
	"github.com/wiretidy/wiretidy/pkg/snapshot"
)

// scoreOpts holds the command-line flags for the score command.
type scoreOpts struct {
	before  string // optional second diagram for a comparative judgment
	manual  int    // manual score, bypassing the API (-1 = unset)
	noCache bool
}

// newScoreCmd creates the score command for judging visual quality.
func newScoreCmd() *cobra.Command {
	opts := scoreOpts{manual: -1}

	cmd := &cobra.Command{
		Use:   "score <diagram.json>",
		Short: "Evaluate the visual quality of a routed diagram",
		Long: `Evaluate the visual quality of a diagram's wire routing.

The diagram is rendered and judged by a vision model against standard
routing principles, yielding a 0-100 score. With --before, the model
compares two diagrams and scores the improvement instead.

Requires an API key (OPENAI_API_KEY or [score] api_key in the config).
Without one, the command falls back to prompting for a manual score, so
scoring pipelines keep working offline.

Examples:
  wiretidy score routed.json
  wiretidy score routed.json --before original.json
  wiretidy score routed.json --manual 70`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runScore(c.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVar(&opts.before, "before", "", "diagram to compare against")
	cmd.Flags().IntVar(&opts.manual, "manual", -1, "record a manual score (0-100) without calling the API")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func runScore(ctx context.Context, source string, opts *scoreOpts) error {
	cfg := configFromContext(ctx)

	if opts.manual >= 0 {
		result := score.Manual(opts.manual)
		printSuccess("Recorded manual score")
		printKeyValue("Score", fmt.Sprintf("%d/100 (%s)", result.Score, result.Mode))
		return nil
	}

	runner, err := newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	sub, err := diagram.ReadFile(source)
	if err != nil {
		return err
	}
	after := snapshot.RenderSVG(sub)

	var before []byte
	if opts.before != "" {
		prev, err := diagram.ReadFile(opts.before)
		if err != nil {
			return err
		}
		before = snapshot.RenderSVG(prev)
	}

	if runner.Scorer == nil {
		runner.Scorer = score.NewClient(score.Options{
			Cache: runner.Cache,
			Keyer: runner.Keyer,
		})
	}

	scoreCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	spinner := newSpinnerWithContext(scoreCtx, "Evaluating routing quality...")
	spinner.Start()
	result, err := runner.Scorer.Evaluate(scoreCtx, after, before)
	if errors.Is(err, score.ErrNoAPIKey) {
		spinner.Stop()
		return promptManualScore(source)
	}
	if err != nil {
		spinner.StopWithError("Evaluation failed")
		return err
	}
	spinner.Stop()

	printSuccess("Scored %s", source)
	printKeyValue("Score", fmt.Sprintf("%d/100", result.Score))
	printKeyValue("Mode", string(result.Mode))
	if result.Model != "" {
		printKeyValue("Model", result.Model)
	}
	if result.Evaluation != "" {
		printNewline()
		printDetail("%s", result.Evaluation)
	}
	return nil
}

// promptManualScore asks the user to judge the diagram by hand. This is
// the offline fallback when no API key is available.
func promptManualScore(source string) error {
	printWarning("No API key configured; falling back to manual scoring")
	printDetail("Open %s in a viewer and judge the routing quality.", source)
	printInline("Score (0-100): ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read score: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", strings.TrimSpace(line), err)
	}

	result := score.Manual(n)
	printSuccess("Recorded manual score")
	printKeyValue("Score", fmt.Sprintf("%d/100 (%s)", result.Score, result.Mode))
	return nil
}
