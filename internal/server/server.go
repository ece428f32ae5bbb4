package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/apantall-runway/ai-chatbot/config"
	"github.com/apantall-runway/ai-chatbot/internal/search"
	"github.com/apantall-runway/ai-chatbot/internal/store"
	"github.com/apantall-runway/ai-chatbot/internal/stream"
	"github.com/apantall-runway/ai-chatbot/provider"
	"github.com/apantall-runway/ai-chatbot/tools/web_search"
)

// Run wires dependencies and serves the HTTP API until the listener stops.
func Run(cfg *appconfig.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Missing provider credentials abort startup: this is the one failure
	// that must surface before any event is emitted.
	if err := cfg.Providers.Search.Validate(); err != nil {
		return err
	}
	if err := cfg.Providers.OpenAI.Validate(); err != nil {
		return err
	}

	searcher, err := web_search.NewWebSearcher(
		web_search.Provider(cfg.Providers.Search.Provider),
		cfg.Providers.Search.APIKey,
		web_search.Options{
			Endpoint:    cfg.Providers.Search.Endpoint,
			SearchDepth: cfg.Providers.Search.SearchDepth,
		},
	)
	if err != nil {
		return err
	}
	llm, err := provider.NewProvider(provider.OpenAI, provider.Options{
		APIKey:      cfg.Providers.OpenAI.APIKey,
		Model:       cfg.Providers.OpenAI.Model,
		Temperature: cfg.Providers.OpenAI.Temperature,
		MaxTokens:   cfg.Providers.OpenAI.MaxTokens,
		Timeout:     cfg.Providers.OpenAI.Timeout,
	})
	if err != nil {
		return err
	}

	// Redis mirror of the event channels (optional).
	var publisher *stream.Publisher
	if redisAddr := cfg.Storage.Redis.Addr(); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", redisAddr, err)
		}
		publisher = stream.NewPublisher(rdb, cfg.Storage.Redis.StreamMaxLen)
	} else {
		baseLogger.Printf("redis not configured; event channels are in-memory only")
	}
	hub := stream.NewHub(publisher, nil)

	// Terminal result persistence (optional).
	var st *store.Store
	if cfg.Storage.Postgres.Enabled() {
		dsn, err := cfg.Storage.Postgres.DSN()
		if err != nil {
			return err
		}
		if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
			baseLogger.Printf("migrations: %v", err)
		}
		st, err = store.NewWithDSN(context.Background(), dsn)
		if err != nil {
			return err
		}
	} else {
		baseLogger.Printf("postgres not configured; terminal results are not persisted")
	}

	var sink search.ResultSink
	if st != nil {
		sink = st
	}
	tool := search.NewTool(searcher, llm, hub, sink, log.New(log.Writer(), "[SEARCH] ", log.LstdFlags))

	sh := &SearchHandler{Tool: tool, Hub: hub, Store: st, Logger: log.New(log.Writer(), "[CHAT] ", log.LstdFlags)}
	sh.Register(e.Group("/api"))

	if addr == "" {
		addr = cfg.Server.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10002"
		}
	}
	baseLogger.Printf("listening on %s", addr)
	return e.Start(addr)
}
