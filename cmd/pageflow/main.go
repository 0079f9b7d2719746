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
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/pageflow"
	"github.com/poiesic/pageflow/ai"
	"github.com/poiesic/pageflow/ingestion"
	"github.com/poiesic/pageflow/ocr"
	"github.com/poiesic/pageflow/readiness"
	"github.com/poiesic/pageflow/storage"
	slogmulti "github.com/samber/slog-multi"
	"github.com/urfave/cli/v2"
)

const logCloserKey = "logCloser"

func main() {
	// Flag EnvVars are resolved while parsing, so the env file must be loaded first.
	if err := loadEnvFile(envFileArg(os.Args[1:])); err != nil {
		log.Fatal(err)
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pageflow",
		Usage: "OCR ingestion of scanned PDFs into a vector store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"PAGEFLOW_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Also write JSON logs to this file",
				EnvVars: []string{"PAGEFLOW_LOG_FILE"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file if it exists",
				Value: ".env",
			},
		},
		Before: setupLogger,
		After:  closeLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "OCR every pending PDF in the input directory and upsert its pages",
				Action: ingestCommand,
				Flags:  configFlags(),
			},
			{
				Name:   "status",
				Usage:  "Show how many documents are checkpointed and pending",
				Action: statusCommand,
				Flags:  configFlags(),
			},
		},
	}
}

func configFlags() []cli.Flag {
	defaults := ingestion.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "input-dir",
			Aliases: []string{"i"},
			Usage:   "Directory containing PDFs to ingest",
			Value:   defaults.InputDir,
			EnvVars: []string{"PAGEFLOW_INPUT_DIR"},
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Usage:   "Directory for page images, page text, checkpoint and manifest",
			Value:   defaults.OutputDir,
			EnvVars: []string{"PAGEFLOW_OUTPUT_DIR"},
		},
		&cli.StringFlag{
			Name:    "ocr-host",
			Usage:   "OCR service host",
			Value:   defaults.OCRHost,
			EnvVars: []string{"PAGEFLOW_OCR_HOST", "OCR_HOST"},
		},
		&cli.IntFlag{
			Name:    "ocr-port",
			Usage:   "OCR service port",
			Value:   defaults.OCRPort,
			EnvVars: []string{"PAGEFLOW_OCR_PORT", "OCR_PORT"},
		},
		&cli.DurationFlag{
			Name:    "readiness-timeout",
			Usage:   "How long to wait for the OCR service to accept connections",
			Value:   defaults.ReadinessTimeout,
			EnvVars: []string{"PAGEFLOW_READINESS_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "max-attempts",
			Usage:   "OCR attempts per page before the document fails",
			Value:   defaults.MaxAttempts,
			EnvVars: []string{"PAGEFLOW_MAX_ATTEMPTS"},
		},
		&cli.DurationFlag{
			Name:    "retry-delay",
			Usage:   "Fixed delay between OCR attempts",
			Value:   defaults.RetryDelay,
			EnvVars: []string{"PAGEFLOW_RETRY_DELAY"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Documents processed concurrently",
			Value:   runtime.NumCPU(),
			EnvVars: []string{"PAGEFLOW_WORKERS"},
		},
		&cli.IntFlag{
			Name:    "dpi",
			Usage:   "Rasterization resolution",
			Value:   defaults.DPI,
			EnvVars: []string{"PAGEFLOW_DPI"},
		},
		&cli.StringFlag{
			Name:    "rasterizer",
			Usage:   "pdftoppm binary",
			Value:   defaults.Rasterizer,
			EnvVars: []string{"PAGEFLOW_RASTERIZER"},
		},
		&cli.StringFlag{
			Name:    "embedding-provider",
			Usage:   "Embedding API (ollama, openai)",
			Value:   string(defaults.Embedding.Provider),
			EnvVars: []string{"PAGEFLOW_EMBEDDING_PROVIDER"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service base URL",
			Value:   defaults.Embedding.EmbeddingHost,
			EnvVars: []string{"PAGEFLOW_EMBEDDING_HOST", "OLLAMA_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   defaults.Embedding.EmbeddingModel,
			EnvVars: []string{"PAGEFLOW_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "vector-store",
			Usage:   "Vector store backend (chroma, badger, pgvector)",
			Value:   string(defaults.VectorStore),
			EnvVars: []string{"PAGEFLOW_VECTOR_STORE"},
		},
		&cli.StringFlag{
			Name:    "collection",
			Usage:   "Collection receiving page records",
			Value:   storage.DefaultCollection,
			EnvVars: []string{"PAGEFLOW_COLLECTION"},
		},
		&cli.StringFlag{
			Name:    "chroma-url",
			Usage:   "Chroma server URL",
			Value:   defaults.ChromaURL,
			EnvVars: []string{"PAGEFLOW_CHROMA_URL"},
		},
		&cli.StringFlag{
			Name:    "chroma-host",
			Usage:   "Chroma host; overrides the host of --chroma-url",
			EnvVars: []string{"CHROMA_HOST"},
		},
		&cli.IntFlag{
			Name:    "chroma-port",
			Usage:   "Chroma port, used with --chroma-host",
			Value:   8000,
			EnvVars: []string{"CHROMA_PORT"},
		},
		&cli.StringFlag{
			Name:    "chroma-tenant",
			Usage:   "Chroma tenant",
			Value:   defaults.ChromaTenant,
			EnvVars: []string{"PAGEFLOW_CHROMA_TENANT", "CHROMA_TENANT"},
		},
		&cli.StringFlag{
			Name:    "chroma-database",
			Usage:   "Chroma database within the tenant",
			Value:   defaults.ChromaDatabase,
			EnvVars: []string{"PAGEFLOW_CHROMA_DATABASE", "CHROMA_DATABASE"},
		},
		&cli.StringFlag{
			Name:    "badger-path",
			Usage:   "BadgerDB directory for the badger backend",
			EnvVars: []string{"PAGEFLOW_BADGER_PATH"},
		},
		&cli.StringFlag{
			Name:    "pg-conn",
			Usage:   "PostgreSQL connection string for the pgvector backend",
			EnvVars: []string{"PAGEFLOW_PG_CONN", "DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "fallback-base-url",
			Usage:   "Prefix for the original document URL sent to OCR",
			Value:   defaults.FallbackBaseURL,
			EnvVars: []string{"PAGEFLOW_FALLBACK_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "record-source-base-url",
			Usage:   "Prefix for the source metadata of each record",
			Value:   defaults.RecordSourceBaseURL,
			EnvVars: []string{"PAGEFLOW_RECORD_SOURCE_BASE_URL"},
		},
	}
}

// configFromFlags builds the run configuration from command flags.
func configFromFlags(c *cli.Context) *ingestion.Config {
	chromaURL := c.String("chroma-url")
	if host := c.String("chroma-host"); host != "" {
		chromaURL = "http://" + net.JoinHostPort(host, strconv.Itoa(c.Int("chroma-port")))
	}

	embedding := ai.NewConfig(
		ai.WithProvider(ai.ProviderName(c.String("embedding-provider"))),
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)

	cfg := ingestion.NewConfig(
		ingestion.WithInputDir(c.String("input-dir")),
		ingestion.WithOutputDir(c.String("output-dir")),
		ingestion.WithOCREndpoint(c.String("ocr-host"), c.Int("ocr-port")),
		ingestion.WithReadinessTimeout(c.Duration("readiness-timeout")),
		ingestion.WithRetry(c.Int("max-attempts"), c.Duration("retry-delay")),
		ingestion.WithWorkers(c.Int("workers")),
		ingestion.WithVectorStore(ingestion.StoreBackend(c.String("vector-store")), c.String("collection")),
		ingestion.WithChromaURL(chromaURL),
		ingestion.WithChromaScope(c.String("chroma-tenant"), c.String("chroma-database")),
		ingestion.WithBadgerPath(c.String("badger-path")),
		ingestion.WithPGConn(c.String("pg-conn")),
		ingestion.WithEmbedding(embedding),
		ingestion.WithBaseURLs(c.String("fallback-base-url"), c.String("record-source-base-url")),
	)
	cfg.DPI = c.Int("dpi")
	cfg.Rasterizer = c.String("rasterizer")
	return cfg
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg := configFromFlags(c)

	ingestor, err := pageflow.NewIngestor(cfg, pageflow.WithProgress(c.App.ErrWriter))
	if err != nil {
		return err
	}
	defer ingestor.Close()

	summary, err := ingestor.Run(ctx)
	if err != nil {
		if errors.Is(err, readiness.ErrNotReady) {
			slog.Error("OCR service never became ready", "host", cfg.OCRHost, "port", cfg.OCRPort, "timeout", cfg.ReadinessTimeout)
		}
		return err
	}

	exhausted := 0
	for _, result := range summary.Results {
		if errors.Is(result.Err, ocr.ErrOCRExhausted) {
			exhausted++
		}
	}

	fmt.Fprintf(c.App.Writer, "Ingestion complete in %s\n", summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(c.App.Writer, "  Documents discovered: %d\n", summary.Discovered)
	fmt.Fprintf(c.App.Writer, "  Already checkpointed: %d\n", summary.Skipped)
	fmt.Fprintf(c.App.Writer, "  Succeeded:            %d\n", summary.Succeeded)
	fmt.Fprintf(c.App.Writer, "  Failed:               %d (%d after OCR retries)\n", summary.Failed, exhausted)
	fmt.Fprintf(c.App.Writer, "  Records upserted:     %d\n", summary.Records)
	fmt.Fprintf(c.App.Writer, "  Manifest:             %s\n", cfg.ManifestPath())
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	ingestor, err := pageflow.NewIngestor(configFromFlags(c))
	if err != nil {
		return err
	}
	defer ingestor.Close()

	status, err := ingestor.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Documents discovered: %d\n", status.Discovered)
	fmt.Fprintf(c.App.Writer, "Checkpointed:         %d\n", status.Checkpointed)
	fmt.Fprintf(c.App.Writer, "Pending:              %d\n", status.Pending)
	fmt.Fprintf(c.App.Writer, "Records in store:     %d\n", status.Records)
	return nil
}

// envFileArg finds the --env-file value before flags are parsed.
func envFileArg(args []string) string {
	for i, arg := range args {
		for _, prefix := range []string{"--env-file=", "-env-file="} {
			if v, ok := strings.CutPrefix(arg, prefix); ok {
				return v
			}
		}
		if (arg == "--env-file" || arg == "-env-file") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ".env"
}

// loadEnvFile loads path into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
}

func setupLogger(c *cli.Context) error {
	level, err := parseLevel(c.String("log-level"))
	if err != nil {
		return err
	}

	var stderr io.Writer = os.Stderr
	if c.App.ErrWriter != nil {
		stderr = c.App.ErrWriter
	}
	stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})

	path := c.String("log-file")
	if path == "" {
		slog.SetDefault(slog.New(stderrHandler))
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(slogmulti.Fanout(stderrHandler, fileHandler)))

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[logCloserKey] = file
	return nil
}

func closeLogger(c *cli.Context) error {
	if closer, ok := c.App.Metadata[logCloserKey].(io.Closer); ok {
		delete(c.App.Metadata, logCloserKey)
		return closer.Close()
	}
	return nil
}
