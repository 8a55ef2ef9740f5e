package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/loan-decision/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
)

var (
	inputFlag = &cli.StringFlag{
		Name:    "input",
		Aliases: []string{"i"},
		Usage:   "JSON file holding the application, - for stdin",
	}

	setFlag = &cli.StringSliceFlag{
		Name:  "set",
		Usage: "Field value as name=value, repeatable; overrides --input",
	}

	topFlag = &cli.IntFlag{
		Name:  "top",
		Usage: "Number of features to show (0 shows all)",
	}

	noExplainFlag = &cli.BoolFlag{
		Name:  "no-explain",
		Usage: "Skip the feature attribution step",
	}

	predictCmd = &cli.Command{
		Name:    "predict",
		Aliases: []string{"p"},
		Usage:   "Score one loan application",
		Flags: []cli.Flag{
			inputFlag,
			setFlag,
			topFlag,
			noExplainFlag,
		},
		Action: cmdPredict,
	}
)

func cmdPredict(c *cli.Context) error {
	logger := getLogger(c)

	s, m, err := analysis.LoadPipeline(c.String(modelPathFlag.Name), c.String(schemaPathFlag.Name), false)
	if err != nil {
		return err
	}

	raw, err := readApplication(c, s)
	if err != nil {
		return err
	}

	analyzer := analysis.NewAnalyzer(analysis.Options{
		Schema:              s,
		Classifier:          m,
		Explainer:           m,
		ExplainEnabled:      !c.Bool(noExplainFlag.Name),
		AdditivityTolerance: 1e-6,
		Formatter:           analysis.FormatterConfig{Decimals: 4, TopFeatures: c.Int(topFlag.Name)},
		ModelVersion:        m.Version(),
		Logger:              logger,
	})

	result, err := analyzer.Analyze(context.Background(), uuid.NewString(), raw)
	if err != nil {
		if app := apperrors.ToAppError(err); apperrors.IsValidation(app) {
			for _, field := range apperrors.SortedFields(apperrors.FieldMessages(app)) {
				logger.Warn("invalid field", "field", field, "reason", apperrors.FieldMessages(app)[field])
			}
		}
		return err
	}

	if c.String(formatFlag.Name) != formatText {
		return printStructured(c, result)
	}
	return printDecision(c.App.Writer, result)
}

// readApplication merges the --input document with --set overrides.
// An override replaces every input key naming the same feature.
func readApplication(c *cli.Context, s *schema.Schema) (map[string]any, error) {
	raw := map[string]any{}

	if path := c.String(inputFlag.Name); path != "" {
		var r io.Reader = c.App.Reader
		if path != "-" {
			// #nosec G304 -- path is supplied by the operator.
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("opening input: %w", err)
			}
			defer apperrors.SafeClose(f, "input file")
			r = f
		}
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding input: %w", err)
		}
	}

	for _, kv := range c.StringSlice(setFlag.Name) {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --set %q, want name=value", kv)
		}
		name = strings.TrimSpace(name)
		if entry, _, known := s.Lookup(name); known {
			for key := range raw {
				if other, _, same := s.Lookup(key); same && other.Name == entry.Name {
					delete(raw, key)
				}
			}
			name = entry.Name
		}
		raw[name] = strings.TrimSpace(value)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("no application given, use --input or --set")
	}
	return raw, nil
}

func printDecision(w io.Writer, r analysis.DisplayResult) error {
	fmt.Fprintf(w, "Decision:    %s\n", r.Label)
	fmt.Fprintf(w, "Confidence:  %s\n", r.ConfidenceText)
	if r.ModelVersion != "" {
		fmt.Fprintf(w, "Model:       %s\n", r.ModelVersion)
	}

	if r.ExplanationStatus != analysis.ExplanationAvailable {
		fmt.Fprintf(w, "Explanation: %s\n", r.ExplanationStatus)
		if r.ExplanationMessage != "" {
			fmt.Fprintf(w, "             %s\n", r.ExplanationMessage)
		}
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFEATURE\tVALUE\tCONTRIBUTION\tDIRECTION")
	for _, f := range r.Features {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%+.4f\t%s\n", f.Rank, f.Label, f.DisplayValue, f.Contribution, f.Polarity)
	}
	return tw.Flush()
}
