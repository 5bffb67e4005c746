package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/nfcure/digitaltwin/backend/internal/evaluation"
	"github.com/nfcure/digitaltwin/backend/internal/reportparser"
)

var errThresholds = errors.New("evaluation thresholds not met")

func evaluateCommand() *cli.Command {
	defaults := evaluation.DefaultThresholds()

	return &cli.Command{
		Name:      "evaluate",
		Usage:     "Score the parser against labelled assessments",
		ArgsUsage: "<golden.json>",
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:  "min-risk-accuracy",
				Usage: "Fail below this risk classification accuracy",
				Value: defaults.MinRiskAccuracy,
			},
			&cli.FloatFlag{
				Name:  "max-success-mae",
				Usage: "Fail above this mean absolute success rate error",
				Value: defaults.MaxSuccessMAE,
			},
			&cli.FloatFlag{
				Name:  "min-section-recall",
				Usage: "Fail below this average section recall",
				Value: defaults.MinSectionRecall,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errMissingInput
			}

			cases, err := evaluation.LoadGoldenCases(cmd.Args().First())
			if err != nil {
				return err
			}
			if err := evaluation.ValidateGoldenCases(cases); err != nil {
				return err
			}

			summary, err := evaluation.NewRunner(reportparser.Parse).Run(ctx, cases)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(writer(cmd))
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}

			thresholds := evaluation.Thresholds{
				MinRiskAccuracy:  cmd.Float("min-risk-accuracy"),
				MaxSuccessMAE:    cmd.Float("max-success-mae"),
				MinSectionRecall: cmd.Float("min-section-recall"),
			}
			if violations := thresholds.Check(summary); len(violations) > 0 {
				return fmt.Errorf("%w: %s", errThresholds, strings.Join(violations, "; "))
			}
			return nil
		},
	}
}
