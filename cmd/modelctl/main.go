// modelctl checks and exercises cost model artifacts offline.
//
// Usage:
//
//	modelctl validate --model models/travel_cost_predictor.json
//	modelctl inspect --model models/travel_cost_predictor.json --format json
//	modelctl predict --model models/travel_cost_predictor.json --request request.json
//	modelctl bucket --model models/travel_cost_predictor.json --duration 12 --age 41
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/liamcoop/costpredictor/inference"
	"github.com/liamcoop/costpredictor/internal/logger"
	"github.com/liamcoop/costpredictor/model"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "modelctl",
		Usage: "Inspect, validate and exercise travel cost model artifacts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Value:   "models/travel_cost_predictor.json",
				Usage:   "Path to the model artifact",
				EnvVars: []string{"COSTPREDICTOR_MODEL_PATH"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"COSTPREDICTOR_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			return logger.Setup(logger.Options{Level: c.String("log-level"), Format: "text"})
		},
		Commands: []*cli.Command{
			validateCommand(),
			inspectCommand(),
			predictCommand(),
			bucketCommand(),
		},
	}
}

func loadModel(c *cli.Context) (*model.Model, error) {
	path := c.String("model")
	m, err := model.Load(path, inference.Schema())
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("model %s is not servable: %v", path, err), 1)
	}
	logger.Debug("Model loaded", "path", path, "instance", m.Instance().String())
	return m, nil
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check that an artifact loads against the serving schema",
		Action: func(c *cli.Context) error {
			m, err := loadModel(c)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "OK: %s (%s)\n", m.Name(), m.Format())
			return nil
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Print artifact metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format (text, json)",
			},
		},
		Action: func(c *cli.Context) error {
			m, err := loadModel(c)
			if err != nil {
				return err
			}

			switch c.String("format") {
			case "json":
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"name":       m.Name(),
					"format":     m.Format(),
					"trained_at": m.TrainedAt(),
					"columns":    m.Columns(),
					"targets":    m.Targets(),
					"derived":    m.DerivedSources(),
				})
			case "text":
				return writeInspectText(c.App.Writer, m)
			default:
				return cli.Exit(fmt.Sprintf("unknown format: %s (use: text, json)", c.String("format")), 2)
			}
		},
	}
}

func writeInspectText(out io.Writer, m *model.Model) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", m.Name())
	fmt.Fprintf(tw, "Format:\t%s\n", m.Format())
	if !m.TrainedAt().IsZero() {
		fmt.Fprintf(tw, "Trained:\t%s\n", m.TrainedAt().Format("2006-01-02T15:04:05Z07:00"))
	}
	fmt.Fprintf(tw, "Columns:\t%s\n", strings.Join(m.Columns(), ", "))
	fmt.Fprintf(tw, "Targets:\t%s\n", strings.Join(m.Targets(), ", "))
	for _, d := range m.DerivedSources() {
		source := d.Source
		if d.Value != "" {
			source = fmt.Sprintf("%s %q", d.Source, d.Value)
		}
		fmt.Fprintf(tw, "Derived %s:\tfrom %s, %s\n", d.Column, d.Input, source)
	}
	return tw.Flush()
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Run one prediction request through the artifact",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "request",
				Aliases:  []string{"r"},
				Usage:    "Path to a JSON request body, or - for stdin",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			m, err := loadModel(c)
			if err != nil {
				return err
			}

			var in io.Reader
			if path := c.String("request"); path == "-" {
				in = c.App.Reader
			} else {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open request: %w", err)
				}
				defer f.Close()
				in = f
			}

			req, err := inference.DecodeRequest(in)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			holder := model.NewHolder(m.Path(), inference.Schema())
			holder.Swap(m)
			result, err := inference.NewService(holder, nil).Predict(context.Background(), req)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return json.NewEncoder(c.App.Writer).Encode(result)
		},
	}
}

func bucketCommand() *cli.Command {
	return &cli.Command{
		Name:  "bucket",
		Usage: "Show the derived group values for a duration and age",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "duration", Usage: "Trip duration in days", Required: true},
			&cli.Float64Flag{Name: "age", Usage: "Traveler age", Required: true},
		},
		Action: func(c *cli.Context) error {
			m, err := loadModel(c)
			if err != nil {
				return err
			}

			row, err := inference.BuildRow(m, inference.Itinerary{
				DurationDays: c.Float64("duration"),
				TravelerAge:  c.Float64("age"),
			})
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			fmt.Fprintf(c.App.Writer, "%s=%s\n%s=%s\n",
				inference.ColumnDurationGroup, row.DurationGroup,
				inference.ColumnAgeGroup, row.AgeGroup)
			return nil
		},
	}
}
