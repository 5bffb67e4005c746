package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/nfcure/digitaltwin/backend/internal/reportparser"
)

var (
	errTooManyArgs   = errors.New("expected at most one input file")
	errMissingInput  = errors.New("expected exactly one input file")
	errSectionNotSet = errors.New("--name is required")
)

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse an assessment and print the structured report as JSON",
		ArgsUsage: "[file|-]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "operation",
				Aliases: []string{"o"},
				Usage:   "Procedure name recorded on the report",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Indent the JSON output",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 1 {
				return errTooManyArgs
			}

			text, err := readInput(cmd, cmd.Args().First())
			if err != nil {
				return err
			}

			report := reportparser.Parse(text, cmd.String("operation"))

			enc := json.NewEncoder(writer(cmd))
			if cmd.Bool("pretty") {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(report)
		},
	}
}

func sectionCommand() *cli.Command {
	return &cli.Command{
		Name:      "section",
		Usage:     "Print the lines of one named section, one per line",
		ArgsUsage: "<file|->",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Section heading, without the bold markers",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errMissingInput
			}
			name := cmd.String("name")
			if name == "" {
				return errSectionNotSet
			}

			text, err := readInput(cmd, cmd.Args().First())
			if err != nil {
				return err
			}

			out := writer(cmd)
			for _, line := range reportparser.ExtractSection(text, name) {
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cli.Command, path string) (string, error) {
	var r io.Reader
	if path == "" || path == "-" {
		r = cmd.Root().Reader
		if r == nil {
			r = os.Stdin
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
