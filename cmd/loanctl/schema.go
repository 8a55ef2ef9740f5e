package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/loan-decision/internal/analysis"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
	"github.com/ZanzyTHEbar/loan-decision/internal/types"
)

var (
	schemaCmd = &cli.Command{
		Name:   "schema",
		Usage:  "Print the feature schema in model input order",
		Action: cmdSchema,
	}

	checkCmd = &cli.Command{
		Name:  "check",
		Usage: "Verify that the model artifact was trained against the schema",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Reject artifacts carrying neither feature names nor a schema fingerprint",
				Value: true,
			},
		},
		Action: cmdCheck,
	}
)

func cmdSchema(c *cli.Context) error {
	s, err := schema.LoadOrDefault(c.String(schemaPathFlag.Name))
	if err != nil {
		return err
	}

	if c.String(formatFlag.Name) != formatText {
		return printStructured(c, types.NewSchemaResponse(s))
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Schema %s (%s)\n\n", s.Version, s.Fingerprint())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tKIND\tDOMAIN\tALIASES")
	for i, e := range s.Features {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, e.Name, e.Kind, describeDomain(e), strings.Join(e.Aliases, ", "))
	}
	return tw.Flush()
}

func describeDomain(e schema.Entry) string {
	if e.Kind == schema.KindCategorical {
		parts := make([]string, len(e.Categories))
		for i, cat := range e.Categories {
			parts[i] = fmt.Sprintf("%s=%d", cat.Label, cat.Code)
		}
		return strings.Join(parts, " ")
	}

	lower, hasLower := e.LowerBound()
	switch {
	case hasLower && e.Max != nil:
		return fmt.Sprintf("[%g, %g]", lower, *e.Max)
	case hasLower:
		return fmt.Sprintf(">= %g", lower)
	case e.Max != nil:
		return fmt.Sprintf("<= %g", *e.Max)
	default:
		return "any"
	}
}

func cmdCheck(c *cli.Context) error {
	s, m, err := analysis.LoadPipeline(c.String(modelPathFlag.Name), c.String(schemaPathFlag.Name), c.Bool("strict"))
	if err != nil {
		return err
	}

	getLogger(c).Debug("model checked", "kind", m.Kind(), "width", m.Signature().Width)
	fmt.Fprintf(c.App.Writer, "ok: model %s (%s) matches schema %s\n", m.Version(), m.Kind(), s.Fingerprint())
	return nil
}
