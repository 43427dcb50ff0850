package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/formgate/internal/appconfig"
	"github.com/dropDatabas3/formgate/internal/cd"
	"github.com/dropDatabas3/formgate/internal/config"
	"github.com/dropDatabas3/formgate/internal/deliverylog"
	httpserver "github.com/dropDatabas3/formgate/internal/http"
	"github.com/dropDatabas3/formgate/internal/kv"
	"github.com/dropDatabas3/formgate/internal/mail"
	"github.com/dropDatabas3/formgate/internal/metrics"
	"github.com/dropDatabas3/formgate/internal/observability/logger"
	"github.com/dropDatabas3/formgate/internal/pending"
	"github.com/dropDatabas3/formgate/internal/rate"
	"github.com/dropDatabas3/formgate/internal/resolver"
	"github.com/dropDatabas3/formgate/internal/workflow"
)

func main() {
	// .env es opcional; en prod todo viene por entorno real
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "ruta del config.yaml")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level})
	defer func() { _ = logger.Sync() }()
	l := logger.Named("formgate")

	registry, err := appconfig.Load(
		cfg.Apps.ApplicationsPath,
		cfg.Apps.TemplatesPath,
		cfg.Apps.TemplatesDir,
		cfg.Apps.DefaultLang,
	)
	if err != nil {
		l.Fatal("load application registry", logger.Err(err))
	}

	kvClient, err := kv.New(kv.Config{
		Driver:   cfg.Store.Driver,
		Addr:     cfg.Store.Redis.Addr,
		Password: cfg.Store.Redis.Password,
		DB:       cfg.Store.Redis.DB,
		Prefix:   cfg.Store.Redis.Prefix,
	})
	if err != nil {
		l.Fatal("init kv store", logger.Err(err))
	}
	defer func() { _ = kvClient.Close() }()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := kvClient.Ping(pingCtx); err != nil {
		cancel()
		l.Fatal("kv store unreachable", logger.Err(err))
	}
	cancel()

	deliveryLog, err := deliverylog.New(context.Background(), deliverylog.Config{
		Driver:     cfg.DeliveryLog.Driver,
		FilePrefix: cfg.DeliveryLog.FilePrefix,
		DSN:        cfg.DeliveryLog.DSN,
	})
	if err != nil {
		l.Fatal("init delivery log", logger.Err(err))
	}
	defer func() { _ = deliveryLog.Close() }()

	sender := mail.NewSMTPSender(mail.Config{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		Username:           cfg.SMTP.Username,
		Password:           cfg.SMTP.Password,
		TLSMode:            cfg.SMTP.TLS,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		Timeout:            cfg.SMTP.Timeout,
	})

	var subscriber cd.Subscriber
	if cfg.CD.URL != "" {
		subscriber = cd.New(cfg.CD.URL, cfg.CD.Passphrase, cfg.CD.Timeout)
	}

	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		limiter = buildLimiter(kvClient, cfg.Store.Redis.Prefix, cfg.Rate.Window)
	}

	svc := &workflow.Service{
		Resolver:        resolver.New(registry),
		Pending:         pending.New(kvClient, cfg.Confirmation.TTL),
		Log:             deliveryLog,
		Sender:          sender,
		CD:              subscriber,
		Limiter:         limiter,
		BaseURL:         cfg.Server.BaseURL,
		DomainBlocklist: cfg.Confirmation.DomainBlocklist,
	}

	metricsHandler, err := metrics.Register(nil)
	if err != nil {
		l.Fatal("register metrics", logger.Err(err))
	}

	router := httpserver.NewRouter(
		&httpserver.FormsHandler{Service: svc},
		&httpserver.APIHandler{Registry: registry, Log: deliveryLog},
		metricsHandler,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info("listening", logger.String("addr", cfg.Server.Addr))
		return httpserver.Start(gctx, cfg.Server.Addr, router)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		l.Fatal("server terminated", logger.Err(err))
	}
	l.Info("shutdown complete")
}

// buildLimiter elige el backend del rate limiter según el kv configurado:
// con Redis la ventana se comparte entre réplicas; en memoria es por proceso.
func buildLimiter(client kv.Client, prefix string, window time.Duration) rate.Limiter {
	type rawer interface{ Raw() *redis.Client }
	if r, ok := client.(rawer); ok {
		return rate.NewRedisLimiter(r.Raw(), prefix+"rl:", window)
	}
	return rate.NewMemoryLimiter(window)
}
