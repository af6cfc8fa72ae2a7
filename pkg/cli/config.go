package cli

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/adapter"
	"github.com/m-mizutani/solace/pkg/index"
	"github.com/m-mizutani/solace/pkg/repository"
	"github.com/m-mizutani/solace/pkg/service/llm"
	"github.com/m-mizutani/solace/pkg/usecase/chat"
	"github.com/m-mizutani/solace/pkg/usecase/dialogue"
	"github.com/m-mizutani/solace/pkg/usecase/profile"
	"github.com/m-mizutani/solace/pkg/usecase/retrieval"
	"github.com/m-mizutani/solace/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Repository
	project  string
	database string
	local    bool

	// Adapters
	geminiProject  string
	geminiLocation string
	bucket         string

	// Tuning
	rulesConfig  string
	policyDir    string
	logLevel     string
	stageTimeout time.Duration
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.BoolFlag{
			Name:        "local",
			Usage:       "Run fully offline with in-memory storage and keyword fallbacks",
			Sources:     cli.EnvVars("SOLACE_LOCAL"),
			Destination: &cfg.local,
		},
		&cli.StringFlag{
			Name:        "rules-config",
			Usage:       "Path to YAML tuning file",
			Sources:     cli.EnvVars("SOLACE_RULES_CONFIG"),
			Destination: &cfg.rulesConfig,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego blocklist policies",
			Sources:     cli.EnvVars("SOLACE_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.DurationFlag{
			Name:        "stage-timeout",
			Usage:       "Timeout for each external call (classification, search, scoring, archive)",
			Value:       15 * time.Second,
			Sources:     cli.EnvVars("SOLACE_STAGE_TIMEOUT"),
			Destination: &cfg.stageTimeout,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("SOLACE_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
	}
}

// storageFlags returns flags for the transcript archive
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for transcript archiving",
			Sources:     cli.EnvVars("SOLACE_BUCKET"),
			Destination: &cfg.bucket,
		},
	}
}

// setupLogging installs the logger into the context
func (cfg *config) setupLogging(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newRepository creates a repository instance
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.local {
		return repository.NewMemory(), nil
	}

	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newGemini creates a Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
}

// newStorage creates a Storage adapter instance
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// loadTuning reads the tuning file, falling back to defaults
func (cfg *config) loadTuning() (*dialogue.Config, error) {
	return dialogue.LoadConfig(cfg.rulesConfig)
}

// newEngine builds the trigger engine with the configured veto chain
func (cfg *config) newEngine(ctx context.Context, tuning *dialogue.Config) (*dialogue.Engine, error) {
	var opts []dialogue.Option

	if cfg.policyDir != "" {
		veto, err := dialogue.NewRegoVeto(ctx, cfg.policyDir)
		if err != nil {
			return nil, err
		}
		if veto != nil {
			opts = append(opts, dialogue.WithVeto(veto))
		}
	}
	if len(opts) == 0 {
		opts = append(opts, dialogue.WithVeto(
			dialogue.NewKeywordBlocklist(tuning.Blocklist.ExtraTerms...)))
	}

	return dialogue.NewEngine(opts...), nil
}

// newOrchestrator wires the full pipeline. In local mode every model-backed
// stage runs on its offline fallback.
func (cfg *config) newOrchestrator(ctx context.Context, repo repository.Repository) (*chat.UseCase, error) {
	tuning, err := cfg.loadTuning()
	if err != nil {
		return nil, err
	}

	engine, err := cfg.newEngine(ctx, tuning)
	if err != nil {
		return nil, err
	}

	lexical := index.NewBM25()
	chunks, err := repo.ListChunks(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load corpus for lexical index")
	}
	lexical.Fit(chunks)

	retrievalOpts := []retrieval.Option{
		retrieval.WithWeights(tuning.Retrieval.SemanticWeight, tuning.Retrieval.LexicalWeight),
		retrieval.WithPoolSize(tuning.Retrieval.PoolSize),
		retrieval.WithTopM(tuning.Retrieval.RerankTop),
		retrieval.WithQueryBound(tuning.Retrieval.QueryVariants),
		retrieval.WithStageTimeout(cfg.stageTimeout),
	}

	chatOpts := []chat.Option{chat.WithStageTimeout(cfg.stageTimeout)}
	var retriever *retrieval.UseCase
	var classifier chat.Classifier

	if cfg.local {
		retriever = retrieval.New(
			retrieval.NewStaticExpander(), nil, lexical, nil, retrievalOpts...)
		classifier = llm.NewKeywordClassifier()
	} else {
		gemini, err := cfg.newGemini(ctx)
		if err != nil {
			return nil, err
		}
		client := llm.New(gemini)
		semantic := index.NewSemantic(repo, client)
		retriever = retrieval.New(
			retrieval.NewLLMExpander(client), semantic, lexical, client, retrievalOpts...)
		classifier = client
		chatOpts = append(chatOpts, chat.WithFallbackClassifier(llm.NewKeywordClassifier()))
	}

	if cfg.bucket != "" {
		storage, err := cfg.newStorage(ctx)
		if err != nil {
			return nil, err
		}
		chatOpts = append(chatOpts, chat.WithArchive(storage))
	}

	return chat.New(repo, profile.New(repo), engine, retriever, classifier, chatOpts...), nil
}
