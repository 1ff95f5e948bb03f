package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/reform.v1"
	"gopkg.in/reform.v1/dialects/postgresql"

	"github.com/gamevault/recon/engine"
	"github.com/gamevault/recon/engine/worker"
	"github.com/gamevault/recon/httputils"
	"github.com/gamevault/recon/provider"
	"github.com/gamevault/recon/provider/mailbox"
	"github.com/gamevault/recon/services/alerter"
	"github.com/gamevault/recon/services/mailer"
)

var (
	VERSION = "dev"

	pollIntervalF       = flag.Duration("poll-interval", 15*time.Second, "Mailbox poll interval.")
	debugAddrF          = flag.String("debug-addr", "127.0.0.1:9093", "Debug (metrics) listen address.")
	onLoggerDevF        = flag.Bool("logger-dev", false, "Enable development logger.")
	onLoggerDebugLevelF = flag.Bool("logger-debug-level", false, "Enable debug level logger.")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()
	syncLogger := setupLogger(*onLoggerDevF, *onLoggerDebugLevelF)
	defer syncLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	zap.L().Info("Starting payment verifier...", zap.String("version", VERSION))
	defer func() { zap.L().Info("Done.") }()
	handleTerm(cancel)

	// mail and store credentials are fatal when absent, everything else is
	// degraded-but-running
	imapAddr := mustEnv("IMAP_ADDR")
	imapUser := mustEnv("IMAP_USERNAME")
	imapPassword := mustEnv("IMAP_PASSWORD")
	pgConn := mustEnv("PG_CONN")
	bankSender := getEnv("BANK_EMAIL_SENDER", "notifications@maribank.com")

	sqlDB := setupPostgres(pgConn, 0, 5, 5)
	defer sqlDB.Close()
	db := reform.NewDB(sqlDB, postgresql.Dialect, reform.NewPrintfLogger(zap.L().Sugar().Debugf))
	store := &provider.Store{DB: db}

	var nc *nats.EncodedConn
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		conn, err := nats.Connect(natsURL)
		if err != nil {
			zap.L().Panic("Failed connect to NATS.", zap.Error(err))
		}
		defer conn.Close()
		nc, err = nats.NewEncodedConn(conn, nats.JSON_ENCODER)
		if err != nil {
			zap.L().Panic("Failed wrap NATS connection.", zap.Error(err))
		}
		zap.L().Info("NATS - connected!")
	} else {
		zap.L().Warn("NATS_URL is not set, alerts will be logged only.")
	}

	var ml *mailer.Mailer
	if smtpHost := os.Getenv("SMTP_HOST"); smtpHost != "" {
		smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
		if err != nil {
			zap.L().Panic("Invalid SMTP_PORT.", zap.Error(err))
		}
		ml = mailer.New(mailer.Config{
			Host:       smtpHost,
			Port:       smtpPort,
			Username:   os.Getenv("SMTP_LOGIN"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			Sender:     getEnv("SENDER_EMAIL", "GameVault <noreply@gameuniverse.co>"),
			AdminEmail: os.Getenv("ALERT_EMAIL"),
		})
	} else {
		zap.L().Warn("SMTP_HOST is not set, no email will be sent.")
	}

	var alertMailer alerter.Mailer
	if ml != nil {
		alertMailer = ml
	}
	matcher := engine.NewMatcher(store, alerter.New(nc, alertMailer))
	ledger := engine.NewLedger(engine.MatchingWindow)
	mbox := mailbox.New(mailbox.Config{
		Addr:     imapAddr,
		Username: imapUser,
		Password: imapPassword,
		Sender:   bankSender,
	})

	var orderMailer worker.Mailer
	if ml != nil {
		orderMailer = ml
	}
	w := worker.New(mbox, matcher, ledger, store, orderMailer, *pollIntervalF)

	go func() {
		zap.L().Info("Debug mux listening.", zap.String("address", *debugAddrF))
		if err := http.ListenAndServe(*debugAddrF, httputils.DebugMux()); err != nil && err != http.ErrServerClosed {
			zap.L().Error("Debug mux serve error.", zap.Error(err))
		}
	}()

	w.Run(ctx)
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

// handleTerm cancels on the first termination signal and force-exits on the
// second.
func handleTerm(cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		zap.L().Warn("Shutting down.", zap.String("signal", s.String()))
		cancel()

		s = <-signals
		zap.L().Panic("Exiting!", zap.String("signal", s.String()))
	}()
}

func setupPostgres(conn string, maxLifetime time.Duration, maxOpen, maxIdle int) *sql.DB {
	sqlDB, err := sql.Open("postgres", conn)
	if err != nil {
		zap.L().Panic("Failed to connect to PostgreSQL.", zap.Error(err))
	}
	sqlDB.SetConnMaxLifetime(maxLifetime)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if err = sqlDB.Ping(); err != nil {
		zap.L().Panic("Failed to ping PostgreSQL.", zap.Error(err))
	}
	zap.L().Info("Postgres - connected!")

	return sqlDB
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
