package main

import (
	"context"
	"flag"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"pssrag/config"
	"pssrag/llm/extract"
	"pssrag/llm/generate"
	"pssrag/llm/parser"
	"pssrag/llm/providers"
	"pssrag/llm/vector"
	"pssrag/lookup"
	"pssrag/pubsub"
	"pssrag/rag"
	"pssrag/security"
	"pssrag/tui/chat"

	"github.com/cloudwego/eino/components/model"
)

func init() {
	// Load .env file if exists
	_ = godotenv.Load()
}

func main() {
	rebuild := flag.Bool("rebuild", false, "re-extract documents and rebuild the vector index")
	configPath := flag.String("config", config.DefaultPath(), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()

	system, notifier, securityBroker, err := buildSystem(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer notifier.Shutdown()
	defer securityBroker.Shutdown()

	if *rebuild {
		if err := system.Rebuild(ctx); err != nil {
			log.Fatalf("failed to rebuild index: %v", err)
		}
	} else if err := system.Load(ctx); err != nil {
		log.Printf("could not load index (%v), rebuilding", err)
		if err := system.Rebuild(ctx); err != nil {
			log.Fatalf("failed to rebuild index: %v", err)
		}
	}

	program := tea.NewProgram(
		chat.InitialModel(system, notifier, projectInfo(cfg)),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}

func buildSystem(ctx context.Context, cfg *config.Config) (*rag.System, *pubsub.Broker[string], *pubsub.Broker[security.Event], error) {
	embedder, err := providers.NewEmbeddingModel(ctx, &providers.EmbeddingConfig{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	chatModel, err := buildChatModel(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	securityBroker := pubsub.NewBroker[security.Event]()
	gate := security.NewManager(
		security.NewRateLimiter(windowStore(cfg), cfg.Security.RateLimit, security.DefaultWindow),
		cfg.Security.MaxQueryLength,
		securityBroker,
	)

	notifier := pubsub.NewBroker[string]()
	go relaySecurityAlerts(ctx, securityBroker, notifier)

	generator := generate.NewService(
		generate.NewChatModelBackend(chatModel, cfg.Model.Name),
		gate,
		generate.WithMaxTokens(cfg.Model.MaxTokens),
		generate.WithTemperature(cfg.Model.Temperature),
		generate.WithQualityScoring(cfg.QualityScoring),
		generate.WithProgress(func(source string) {
			notifier.Publish(pubsub.ChunkAnsweredEvent, "answered "+source)
		}),
	)

	system := rag.NewSystem(rag.Config{
		Gate:      gate,
		Generator: generator,
		Embedder:  vector.NewEmbeddingService(embedder),
		Extractor: extract.New(parser.DefaultRegistry(), extract.WithWatermark(cfg.Data.Watermark)),
		DocsDir:   cfg.Data.DocsDir,
		IndexPath: cfg.Index.Path,
		TopK:      cfg.Index.TopK,
		Notifier:  notifier,
	})
	return system, notifier, securityBroker, nil
}

func buildChatModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	mc := &providers.ChatModelConfig{
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Model:       cfg.Model.Name,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
	}
	if cfg.Provider == config.ProviderGemini {
		return providers.NewGeminiModel(ctx, mc)
	}
	return providers.NewChatModel(ctx, mc)
}

// projectInfo loads the optional collaborators shown next to answers.
func projectInfo(cfg *config.Config) chat.ProjectInfo {
	info := chat.ProjectInfo{
		ResumesDir: cfg.Data.ResumesDir,
		SheetsDir:  cfg.Data.SheetsDir,
	}
	if cfg.Data.HoursCSV != "" {
		table, err := lookup.LoadCSV(cfg.Data.HoursCSV)
		if err != nil {
			log.Printf("could not load hours table: %v", err)
		} else {
			info.Table = table
		}
	}
	return info
}

// relaySecurityAlerts surfaces warning and critical gate events on the
// status line. Info-level interaction records stay in the audit log only.
func relaySecurityAlerts(ctx context.Context, events *pubsub.Broker[security.Event], notifier *pubsub.Broker[string]) {
	for event := range events.Subscribe(ctx) {
		if event.Payload.Severity == security.SeverityInfo {
			continue
		}
		notifier.Publish(pubsub.SecurityAlertEvent, "security: "+event.Payload.Kind)
	}
}

// windowStore picks the rate-limit backing store: redis when configured,
// otherwise in-process memory.
func windowStore(cfg *config.Config) security.WindowStore {
	if cfg.Security.RedisAddr == "" {
		return security.NewMemoryWindowStore()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Security.RedisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	return security.NewRedisWindowStore(client)
}
