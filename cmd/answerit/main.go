// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/answerit"
	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/retrieval"
	"github.com/poiesic/answerit/server"
)

func main() {
	app := &cli.App{
		Name:   "answerit",
		Usage:  "Knowledge-augmented question answering service",
		Before: setupLogger,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the answering API over HTTP",
				Action: serveCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
						Value: ":8080",
					},
					&cli.DurationFlag{
						Name:  "max-wait",
						Usage: "Per-request wall-clock budget",
						Value: 25 * time.Second,
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Completion attempts per request",
						Value: 2,
					},
					&cli.DurationFlag{
						Name:  "dedupe-ttl",
						Usage: "How long identical requests share one answer",
						Value: 10 * time.Second,
					},
				),
			},
			{
				Name:      "seed",
				Usage:     "Load knowledge snippets from a text file, one per line",
				ArgsUsage: "FILE",
				Action:    seedCommand,
				Flags: append(storeFlags(),
					&cli.Int64Flag{
						Name:  "subject",
						Usage: "Subject id to load into; 0 loads the global dataset",
					},
					&cli.BoolFlag{
						Name:  "chat",
						Usage: "Load into the subject's conversation dataset",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "ai-host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "completion-model",
			Usage: "Completion model name",
			Value: "qwen2.5:3b",
		},
	}
}

func newSystem(c *cli.Context, extra ...answerit.SystemOption) (*answerit.System, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionModel(c.String("completion-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := append([]answerit.SystemOption{answerit.WithAIConfig(aiConfig)}, extra...)
	return answerit.NewSystem(c.String("db"), opts...)
}

func serveCommand(c *cli.Context) error {
	system, err := newSystem(c,
		answerit.WithBudget(core.Budget{
			MaxAttempts: c.Int("max-attempts"),
			MaxWait:     c.Duration("max-wait"),
		}),
		answerit.WithDedupeTTL(c.Duration("dedupe-ttl")),
	)
	if err != nil {
		return fmt.Errorf("failed to start system: %w", err)
	}
	defer system.Close()

	srv, err := server.New(system.Service())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx, c.String("addr"))
}

func seedCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one input file")
	}

	dataset := retrieval.GlobalDataset
	kind := core.KindDocument
	if subject := c.Int64("subject"); subject > 0 {
		if c.Bool("chat") {
			dataset = retrieval.ChatDataset(subject)
			kind = core.KindMessage
		} else {
			dataset = retrieval.PrivateDataset(subject)
		}
	}

	system, err := newSystem(c)
	if err != nil {
		return fmt.Errorf("failed to start system: %w", err)
	}
	defer system.Close()

	file, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer file.Close()

	ctx := context.Background()
	count := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		snippet := &core.Snippet{
			Text:      text,
			Dataset:   dataset,
			Kind:      kind,
			Timestamp: time.Now(),
		}
		if err := system.AddKnowledge(ctx, snippet); err != nil {
			return fmt.Errorf("failed to add snippet %d: %w", count+1, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Wait for background embedding so the data is searchable when the
	// command returns.
	system.Flush()

	fmt.Fprintf(os.Stderr, "Loaded %d snippets into %s\n", count, dataset)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
