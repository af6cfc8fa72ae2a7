package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/index"
	"github.com/m-mizutani/solace/pkg/service/llm"
	"github.com/urfave/cli/v3"
)

func ingestCommand() *cli.Command {
	var (
		cfg       config
		inputPath string
		title     string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Document file or directory to ingest (.txt, .md)",
			Sources:     cli.EnvVars("SOLACE_INPUT"),
			Destination: &inputPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "title",
			Aliases:     []string{"t"},
			Usage:       "Source title; defaults to the file name",
			Destination: &title,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "ingest",
		Usage: "Chunk, embed and store documents into the corpus",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			var embedder llm.Embedder
			if !cfg.local {
				gemini, err := cfg.newGemini(ctx)
				if err != nil {
					return err
				}
				embedder = llm.New(gemini)
			}

			files, err := collectDocuments(inputPath)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return goerr.New("no ingestable documents found", goerr.V("path", inputPath))
			}

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
				spinner.WithWriter(os.Stderr))
			sp.Start()
			defer sp.Stop()

			chunker := index.NewChunker()
			total := 0
			for _, file := range files {
				data, err := os.ReadFile(file)
				if err != nil {
					return goerr.Wrap(err, "failed to read document", goerr.V("path", file))
				}

				sourceTitle := title
				if sourceTitle == "" {
					sourceTitle = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
				}

				chunks := chunker.Split(string(data), sourceTitle, 0, time.Now())
				for i, chunk := range chunks {
					sp.Suffix = fmt.Sprintf(" %s: chunk %d/%d", sourceTitle, i+1, len(chunks))

					if embedder != nil {
						vec, err := embedder.Embed(ctx, chunk.Text)
						if err != nil {
							return goerr.Wrap(err, "failed to embed chunk",
								goerr.V("source", sourceTitle), goerr.V("chunk", i))
						}
						chunk.Embedding = firestore.Vector32(vec)
					}
					if err := repo.PutChunk(ctx, chunk); err != nil {
						return err
					}
				}
				total += len(chunks)
			}

			sp.Stop()
			fmt.Fprintf(c.Root().Writer, "Ingested %d chunks from %d documents\n", total, len(files))
			return nil
		},
	}
}

func collectDocuments(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to stat input path", goerr.V("path", path))
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".txt", ".md":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to walk input directory", goerr.V("path", path))
	}
	return files, nil
}
