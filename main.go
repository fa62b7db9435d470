package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/almuwathiq/evidence-agent/config"
	"github.com/almuwathiq/evidence-agent/database"
	"github.com/almuwathiq/evidence-agent/embeddings"
	"github.com/almuwathiq/evidence-agent/evidence"
	"github.com/almuwathiq/evidence-agent/ingest"
	"github.com/almuwathiq/evidence-agent/llm"
	"github.com/almuwathiq/evidence-agent/pipeline"
	"github.com/almuwathiq/evidence-agent/store"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	dir := flags.String("dir", cfg.DocumentsDir, "path to directory containing source PDFs")
	authority := flags.String("authority", string(pipeline.AuthorityBNM), "issuing authority of the documents (BNM, AAOIFI, SC, IIFM, FATWA, IIFA)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}

	issuer, err := pipeline.ParseAuthority(*authority)
	if err != nil {
		logger.Fatalf("invalid --authority: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	svc := ingest.NewService(pool, store.NewDocuments(pool), embedder, logger, cfg.Embeddings.Dimension)
	logger.Printf("ingesting PDFs from %s as %s using %s/%s embeddings",
		*dir, issuer, strings.ToUpper(cfg.Embeddings.Provider), cfg.Embeddings.Model)

	if err := svc.IngestDirectory(ctx, *dir, issuer); err != nil {
		logger.Fatalf("ingestion failed: %v", err)
	}
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("question", "", "question to ask against the corpus")
	k := flags.Int("k", cfg.RetrievalK, "number of chunks to retrieve")
	policy := flags.String("policy", cfg.EvidencePolicy, "evidence localization policy (anchor or spread)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	// A missing or misconfigured model degrades to raw-context answers
	// instead of refusing to start.
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Printf("llm setup: %v (answers will fall back to raw context)", err)
		llmClient = nil
	}

	svc := pipeline.NewService(
		store.NewChunkStore(pool, logger),
		store.NewDocuments(pool),
		embedder,
		llmClient,
		evidence.NewGenerator(cfg.MediaDir, logger),
		pipeline.Config{
			RetrievalK:  *k,
			Policy:      pipeline.Policy(*policy),
			EvidenceLog: store.NewEvidenceLog(pool),
		},
		logger,
	)

	result, err := svc.Answer(ctx, *question)
	if err != nil {
		logger.Fatalf("answer failed: %v", err)
	}

	fmt.Println(result.Answer)
	if len(result.Evidence) > 0 {
		fmt.Println()
		fmt.Println("Evidence:")
		for idx, item := range result.Evidence {
			fmt.Printf("%d. %s — page %d (score %.3f)\n", idx+1, item.Title, item.PageNumber, item.Score)
			fmt.Printf("   image: %s\n", item.ImagePath)
		}
	}
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	if !*confirmed {
		fmt.Print("This will permanently delete the ingested corpus and evidence log from Postgres. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatalf("read confirmation: %v", err)
			}
			logger.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "TRUNCATE evidence_artifacts, document_chunks, source_documents"); err != nil {
		logger.Fatalf("truncate corpus tables: %v", err)
	}

	logger.Println("cleared source_documents, document_chunks and evidence_artifacts")
}

func printUsage() {
	fmt.Println("Usage: evidence-agent <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  ingest   Ingest source PDFs into the corpus (use --dir and --authority)")
	fmt.Println("  ask      Answer a question with highlighted page evidence")
	fmt.Println("  clear    Remove the ingested corpus and evidence log")
}
