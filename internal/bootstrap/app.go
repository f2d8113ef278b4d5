package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/analyses"
	googleauth "intake-backend/internal/auth"
	"intake-backend/internal/documents"
	"intake-backend/internal/llm"
	"intake-backend/internal/llm/gemini"
	"intake-backend/internal/llm/openai"
	"intake-backend/internal/retrieval"
	"intake-backend/internal/shared/auth"
	"intake-backend/internal/shared/config"
	"intake-backend/internal/shared/server"
	"intake-backend/internal/shared/storage/db"
	"intake-backend/internal/shared/storage/object"
	localstore "intake-backend/internal/shared/storage/object/local"
	s3store "intake-backend/internal/shared/storage/object/s3"
	"intake-backend/internal/shared/telemetry"
	"intake-backend/internal/users"
)

const (
	authCacheSize      = 4096
	defaultOpenAIModel = "gpt-4o-mini"
)

// App holds shared dependencies and the assembled router.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.Store
	Presigner        object.Presigner
	Signer           retrieval.Signer
	Resolver         *retrieval.Resolver
	Tokens           *auth.Tokens
	Verifier         auth.Verifier
	Analyzer         llm.Analyzer
	AnalysesRepo     analyses.Repo
	UsersRepo        users.Repo
	AnalysesService  *analyses.Service
	DocumentsService *documents.Service
	UsersService     *users.Service
	AnalysisHandler  *analyses.Handler
	DocumentsHandler *documents.Handler
	UsersHandler     *users.Handler
	FileHandler      *retrieval.FileHandler
	GoogleAuth       *googleauth.GoogleService
}

// Build wires every dependency from cfg and assembles the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: sqlDB}
	if err := buildStorage(ctx, app); err != nil {
		return nil, err
	}
	if err := buildAuth(app); err != nil {
		return nil, err
	}
	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return nil, err
	}
	app.Analyzer = analyzer
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		Verifier:        app.Verifier,
		AnalysisHandler: app.AnalysisHandler,
		DocumentHandler: app.DocumentsHandler,
		UserHandler:     app.UsersHandler,
		FileHandler:     app.FileHandler,
		GoogleAuth:      app.GoogleAuth,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStorage(ctx context.Context, app *App) error {
	cfg := app.Config
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return err
		}
		app.Store = store
		app.Presigner = store
		app.Signer = &retrieval.PresignSigner{Store: store}
	default:
		store := localstore.New(cfg.LocalStoreDir)
		signer := &retrieval.LocalSigner{
			Secret:  []byte(signingSecret(cfg)),
			BaseURL: cfg.PublicAPIBaseURL,
		}
		app.Store = store
		app.Signer = signer
		app.FileHandler = retrieval.NewFileHandler(signer, store)
	}
	app.Resolver = retrieval.NewResolver(cfg.StoragePublicBaseURL, app.Signer, cfg.SignedURLTTL)
	return nil
}

// signingSecret derives the file link key from the token secret so a single secret protects both.
func signingSecret(cfg config.Config) string {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		secret = "dev-secret"
	}
	return "files:" + secret
}

func buildAuth(app *App) error {
	tokens, err := auth.NewTokens(app.Config.Env, app.Config.JWTSecret)
	if err != nil {
		return err
	}
	app.Tokens = tokens
	return nil
}

func buildAnalyzer(cfg config.Config) (llm.Analyzer, error) {
	switch cfg.LLMProvider {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return missingKey("gemini", cfg)
		}
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.LLMModel)
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return missingKey("openai", cfg)
		}
		return openai.NewClient(cfg.OpenAIAPIKey, openAIModel(cfg.LLMModel))
	default:
		return llm.PlaceholderClient{}, nil
	}
}

// missingKey keeps the server up so analyze requests surface the not-configured message.
func missingKey(provider string, cfg config.Config) (llm.Analyzer, error) {
	if cfg.Env == "production" {
		telemetry.Error("bootstrap.llm_key_missing", map[string]any{"provider": provider})
	} else {
		telemetry.Warn("bootstrap.llm_key_missing", map[string]any{"provider": provider})
	}
	return llm.PlaceholderClient{}, nil
}

// openAIModel swaps the Gemini default for an OpenAI one when only the provider was changed.
func openAIModel(model string) string {
	if model == "" || strings.HasPrefix(model, "gemini") {
		return defaultOpenAIModel
	}
	return model
}

func buildServices(app *App) {
	cfg := app.Config
	if app.DB != nil {
		app.AnalysesRepo = &analyses.PGRepo{DB: app.DB}
		app.UsersRepo = &users.PGRepo{DB: app.DB}
	} else {
		app.AnalysesRepo = analyses.NewMemoryRepo()
		app.UsersRepo = users.NewMemoryRepo()
	}

	app.UsersService = users.NewService(app.UsersRepo)
	app.Verifier = auth.NewCachedVerifier(
		&auth.JWTVerifier{Tokens: app.Tokens, Users: app.UsersService},
		authCacheSize,
		cfg.AuthCacheTTL,
	)

	app.AnalysesService = analyses.NewService(app.AnalysesRepo, app.Analyzer)
	app.DocumentsService = &documents.Service{
		Store:         app.Store,
		Presigner:     app.Presigner,
		Resolver:      app.Resolver,
		Fetcher:       documents.NewHTTPFetcher(cfg.MaxUploadBytes),
		Pending:       app.AnalysesService,
		Folder:        cfg.StorageFolder,
		PublicBaseURL: cfg.StoragePublicBaseURL,
		MaxBytes:      cfg.MaxUploadBytes,
		UploadTTL:     cfg.SignedURLTTL,
		Now:           func() time.Time { return time.Now().UTC() },
	}

	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService, cfg.MaxPayloadBytes)
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.UsersHandler = users.NewHandler(app.UsersService)
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		app.Tokens,
		app.UsersService,
	)
}
