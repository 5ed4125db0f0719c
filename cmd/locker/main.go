package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sjkp/locker/internal/commands"
	"github.com/sjkp/locker/internal/ingest"
	bunrepo "github.com/sjkp/locker/internal/storage/bun"
	"github.com/sjkp/locker/internal/web"
	"github.com/sjkp/locker/pkg/adapters"
	"github.com/sjkp/locker/pkg/adapters/aws_ses"
	"github.com/sjkp/locker/pkg/adapters/console"
	"github.com/sjkp/locker/pkg/adapters/smtp"
	"github.com/sjkp/locker/pkg/config"
	"github.com/sjkp/locker/pkg/interfaces/logger"
	"github.com/sjkp/locker/pkg/links"
	"github.com/sjkp/locker/pkg/notifier"
	"github.com/sjkp/locker/pkg/secrets"
	"github.com/sjkp/locker/pkg/secrets/keyvault"
	"github.com/sjkp/locker/pkg/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:     "locker",
		Short:   "Secret-created notification and retrieval service",
		Long:    `locker watches for secret-created events, mails the designated recipient a retrieval link plus QR code, and serves the retrieval form.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newSeedCommand(),
		newIngestCommand(),
	)

	return rootCmd.Execute()
}

// app holds everything wired from configuration.
type app struct {
	cfg     config.Config
	log     logger.Logger
	catalog *commands.Catalog
	server  *web.Server
	db      interface{ Close() error }
}

func buildApp() (*app, error) {
	cfg, err := config.Load(config.FromEnv())
	if err != nil {
		return nil, err
	}
	log := logger.Default().With(logger.F("service", "locker"))

	store, seeder, err := buildStore(cfg, log)
	if err != nil {
		return nil, err
	}
	resolver, err := secrets.NewResolver(store)
	if err != nil {
		return nil, err
	}
	builder, err := links.NewBuilder(cfg.Notifier.RetrievalURL)
	if err != nil {
		return nil, err
	}

	registry := buildRegistry(cfg, log)
	mgr, err := notifier.New(notifier.Dependencies{
		Registry: registry,
		Logger:   log,
		Config: notifier.Config{
			From:    cfg.Notifier.From,
			Channel: cfg.Notifier.Channel,
			Subject: cfg.Notifier.Subject,
		},
	})
	if err != nil {
		return nil, err
	}

	reporters := telemetry.Multi{telemetry.NewLogReporter(log)}
	if cfg.Telemetry.Prometheus {
		reporters = append(reporters, telemetry.NewPromReporter(prometheus.DefaultRegisterer))
	}

	a := &app{cfg: cfg, log: log}

	var deliveries ingest.DeliveryLog
	var recent web.Deliveries
	if cfg.Storage.DeliveryLogDSN != "" {
		db, err := bunrepo.Open(cfg.Storage.DeliveryLogDSN)
		if err != nil {
			return nil, err
		}
		deliveryLog := bunrepo.NewDeliveryLog(db)
		if err := deliveryLog.Init(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
		deliveries = deliveryLog
		recent = deliveryLog
		a.db = db
	}

	handler, err := ingest.New(ingest.Dependencies{
		Resolver:   resolver,
		Links:      builder,
		Notifier:   mgr,
		Telemetry:  reporters,
		Logger:     log,
		Deliveries: deliveries,
	})
	if err != nil {
		return nil, err
	}

	catalog, err := commands.NewCatalog(commands.Dependencies{
		Handler: handler,
		Seeder:  seeder,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	a.catalog = catalog

	server, err := web.New(web.Dependencies{
		Resolver:   resolver,
		Ingest:     handler,
		Deliveries: recent,
		Logger:     log,
		Metrics:    cfg.Telemetry.Prometheus,
	})
	if err != nil {
		return nil, err
	}
	a.server = server

	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

type secretWriter interface {
	Put(ctx context.Context, rec secrets.Record) error
}

func buildStore(cfg config.Config, log logger.Logger) (secrets.Store, secretWriter, error) {
	switch cfg.Store.Kind {
	case config.StoreKeyVault:
		store, err := keyvault.New(keyvault.Config{
			VaultURL:           cfg.Store.VaultURL,
			TenantID:           cfg.Store.TenantID,
			ClientID:           cfg.Store.ClientID,
			ClientSecret:       cfg.Store.ClientSecret,
			UseManagedIdentity: cfg.Store.UseManagedIdentity,
		}, keyvault.WithLogger(log))
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.StoreLocal:
		key, err := hex.DecodeString(cfg.Store.LocalKey)
		if err != nil {
			return nil, nil, fmt.Errorf("store.local_key must be hex encoded: %w", err)
		}
		store, err := secrets.NewEncryptedStore(secrets.NewMemoryKV(), key)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.StoreMemory:
		store := secrets.NewMemoryStore()
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}

// buildRegistry registers configured transports in preference order; the
// console adapter goes last so it only answers when nothing else can.
func buildRegistry(cfg config.Config, log logger.Logger) *adapters.Registry {
	registry := adapters.NewRegistry()
	if cfg.Notifier.SMTP.Host != "" {
		registry.Register(smtp.New(log, smtp.WithConfig(smtp.Config{
			Host:     cfg.Notifier.SMTP.Host,
			Port:     cfg.Notifier.SMTP.Port,
			Username: cfg.Notifier.SMTP.Username,
			Password: cfg.Notifier.SMTP.Password,
			From:        cfg.Notifier.From,
			UseStartTLS: true,
		})))
	}
	if cfg.Notifier.SES.Region != "" {
		registry.Register(aws_ses.New(log, aws_ses.WithConfig(aws_ses.Config{
			From:   cfg.Notifier.From,
			Region: cfg.Notifier.SES.Region,
		})))
	}
	registry.Register(console.New(log))
	return registry
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			srv := &http.Server{
				Addr:    a.cfg.Server.Addr,
				Handler: a.server.Router(),
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("server listening", logger.F("addr", a.cfg.Server.Addr))
				errCh <- srv.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case sig := <-stop:
				a.log.Info("shutting down", logger.F("signal", sig.String()))
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
}

func newSeedCommand() *cobra.Command {
	var recipient string
	cmd := &cobra.Command{
		Use:   "seed <name> <value>",
		Short: "Store a secret with its recipient (memory and local stores only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()
			return a.catalog.SeedSecret.Execute(cmd.Context(), commands.SeedSecret{
				Name:      args[0],
				Value:     args[1],
				Recipient: recipient,
			})
		},
	}
	cmd.Flags().StringVar(&recipient, "recipient", "", "Recipient email stored in the secret metadata")
	return cmd
}

func newIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [file]",
		Short: "Process one secret-created event payload (stdin or file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd, args)
			if err != nil {
				return err
			}
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()
			return a.catalog.IngestEvent.Execute(cmd.Context(), commands.IngestEvent{Payload: payload})
		},
	}
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 1 {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(cmd.InOrStdin())
}
