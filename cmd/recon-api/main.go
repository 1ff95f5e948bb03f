package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gamevault/recon/cache"
	"github.com/gamevault/recon/i18n"
	"github.com/gamevault/recon/provider/gamepoint"
	"github.com/gamevault/recon/provider/smileone"
	"github.com/gamevault/recon/services/web"
)

var (
	VERSION = "dev"

	addrF            = flag.String("addr", ":8080", "HTTP listen address.")
	localesDirF      = flag.String("locales-dir", "locales", "Directory with <lang>.json locale files.")
	catalogRefreshF  = flag.Duration("catalog-refresh", 30*time.Minute, "Catalog refresh interval.")
	onLoggerDevF     = flag.Bool("logger-dev", false, "Enable development logger.")
	onLoggerDebugLvF = flag.Bool("logger-debug-level", false, "Enable debug level logger.")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()
	syncLogger := setupLogger(*onLoggerDevF, *onLoggerDebugLvF)
	defer syncLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	zap.L().Info("Starting storefront API...", zap.String("version", VERSION))
	defer func() { zap.L().Info("Done.") }()

	tr, err := i18n.Load(*localesDirF)
	if err != nil {
		zap.L().Panic("Failed load locales.", zap.Error(err))
	}

	var c *cache.Cache
	if os.Getenv("REDIS_URL") != "" || os.Getenv("REDIS_ADDR") != "" {
		c, err = cache.New(os.Getenv("REDIS_URL"), os.Getenv("REDIS_ADDR"), os.Getenv("REDIS_PASSWORD"))
		if err != nil {
			zap.L().Panic("Failed connect to Redis.", zap.Error(err))
		}
		defer c.Close()
		zap.L().Info("Redis - connected!")
	} else {
		zap.L().Warn("Redis is not configured, catalog and token caching disabled.")
	}

	mode := gamepoint.Mode(getEnv("GAMEPOINT_MODE", string(gamepoint.ModeSandbox)))
	suffix := strings.ToUpper(string(mode))
	var gpCache gamepoint.Cache
	if c != nil {
		gpCache = c
	}
	gp, err := gamepoint.NewProvider(gamepoint.Config{
		Mode:      mode,
		PartnerID: mustEnv("GAMEPOINT_PARTNER_ID_" + suffix),
		SecretKey: mustEnv("GAMEPOINT_SECRET_KEY_" + suffix),
		ProxyURL:  os.Getenv("GAMEPOINT_PROXY_URL"),
	}, gpCache)
	if err != nil {
		zap.L().Panic("Failed configure GamePoint provider.", zap.Error(err))
	}

	accounts := smileone.New(smileone.Config{
		EntrypointURL: mustEnv("SMILEONE_ENTRYPOINT_URL"),
		APIKey:        os.Getenv("SMILEONE_API_KEY"),
	})

	srv := web.New(gp, accounts, c, tr)
	if c != nil {
		go srv.RunCatalogRefresher(ctx, *catalogRefreshF)
	}

	go func() {
		if err := srv.Start(*addrF); err != nil {
			zap.L().Error("Web server stopped.", zap.Error(err))
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	s := <-signals
	zap.L().Warn("Shutting down.", zap.String("signal", s.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Failed shutdown web server.", zap.Error(err))
	}
}

func setupLogger(dev, debug bool) func() error {
	var config zap.Config
	if dev {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if debug {
		config.Level.SetLevel(zap.DebugLevel)
	} else {
		config.Level.SetLevel(zap.InfoLevel)
	}

	l, err := config.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(l)
	zap.RedirectStdLog(l.Named("stdlog"))

	return l.Sync
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		zap.L().Panic("Required environment variable is not set.", zap.String("key", key))
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
