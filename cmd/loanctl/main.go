package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/loan-decision/internal/monitoring"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"

	loggerKey = "logger"
)

var (
	version = "v0.0.1-default"
	commit  = ""

	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level [debug, info, warn, error]",
		Value:   "warn",
		EnvVars: []string{"LOG_LEVEL"},
	}

	modelPathFlag = &cli.StringFlag{
		Name:    "model",
		Usage:   "Path to the model artifact",
		Value:   "models/loan_logistic.json",
		EnvVars: []string{"MODEL_PATH"},
	}

	schemaPathFlag = &cli.StringFlag{
		Name:    "schema",
		Usage:   "Path to a feature schema YAML file (optional, defaults to the built-in loan schema)",
		EnvVars: []string{"SCHEMA_PATH"},
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [text, json, yaml]",
		Value: formatText,
	}
)

func main() {
	if err := newCLI(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCLI(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:            "loanctl",
		Version:         fmt.Sprintf("%s (commit: %s)", version, commit),
		Compiled:        time.Now(),
		Usage:           "Score loan applications against a model artifact",
		HideHelpCommand: true,
		Reader:          in,
		Writer:          out,
		Flags: []cli.Flag{
			logLevelFlag,
			modelPathFlag,
			schemaPathFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			predictCmd,
			schemaCmd,
			checkCmd,
		},
		Before: func(c *cli.Context) error {
			switch c.String(formatFlag.Name) {
			case formatText, formatJSON, formatYAML:
			default:
				return fmt.Errorf("unsupported format %q", c.String(formatFlag.Name))
			}
			c.App.Metadata[loggerKey] = monitoring.NewCLILogger(c.String(logLevelFlag.Name))
			return nil
		},
	}
}

func getLogger(c *cli.Context) *monitoring.Logger {
	return c.App.Metadata[loggerKey].(*monitoring.Logger)
}

// printStructured writes v in the requested machine format
func printStructured(c *cli.Context, v interface{}) error {
	if c.String(formatFlag.Name) == formatYAML {
		return yaml.NewEncoder(c.App.Writer).Encode(v)
	}
	e := json.NewEncoder(c.App.Writer)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
