package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"foodshop/docs"
	"foodshop/internal/config"
	"foodshop/internal/events"
	httpapi "foodshop/internal/http"
	"foodshop/internal/repository"
	"foodshop/internal/service"
)

// @title Foodshop API
// @version 1.0
// @description Оформление заказов, корзины и остатки товаров
// @BasePath /api/v1
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	app := &cli.App{
		Name:  "foodshop",
		Usage: "food ordering backend",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run REST API",
				Action: func(c *cli.Context) error {
					return serve(c.Context, logger)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations and exit",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if err := repository.Migrate(cfg.DSN()); err != nil {
						return err
					}
					logger.Info("migrations applied")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.WithError(err).Fatal("foodshop stopped")
	}
}

type storage struct {
	products repository.ProductRepository
	stock    repository.StockLedger
	carts    repository.CartRepository
	orders   repository.OrderRepository
	tx       repository.TxManager
	close    func() error
}

func openStorage(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		store := repository.NewMemoryStore()
		return &storage{
			products: store,
			stock:    store,
			carts:    repository.NewMemoryCarts(store),
			orders:   repository.NewMemoryOrders(store),
			tx:       repository.NewMemoryTx(store),
			close:    func() error { return nil },
		}, nil
	}

	if cfg.AutoMigrate {
		if err := repository.Migrate(cfg.DSN()); err != nil {
			return nil, err
		}
	}
	db, err := repository.OpenMySQL(ctx, cfg.DSN(), cfg.DatabaseMaxConn)
	if err != nil {
		return nil, err
	}
	return mysqlStorage(db), nil
}

func mysqlStorage(db *sqlx.DB) *storage {
	products := repository.NewMySQLProducts(db)
	return &storage{
		products: products,
		stock:    products,
		carts:    repository.NewMySQLCarts(db),
		orders:   repository.NewMySQLOrders(db),
		tx:       repository.NewMySQLTx(db),
		close:    db.Close,
	}
}

func newDispatcher(cfg *config.Config, logger logrus.FieldLogger) (events.Dispatcher, func() error) {
	if cfg.KafkaBroker == "" {
		return events.NewLogDispatcher(logger), func() error { return nil }
	}
	d := events.NewKafkaDispatcher(cfg.KafkaBroker, cfg.KafkaTopic)
	return d, d.Close
}

func serve(ctx context.Context, logger *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	dispatcher, closeDispatcher := newDispatcher(cfg, logger)
	defer func() {
		if err := closeDispatcher(); err != nil {
			logger.WithError(err).Warn("failed to close event dispatcher")
		}
	}()

	productsSvc := service.NewProductService(st.products)
	cartsSvc := service.NewCartService(st.carts, st.stock, logger)
	ordersSvc := service.NewOrderService(st.orders, st.tx, dispatcher, logger)

	docs.SwaggerInfo.BasePath = "/api/v1"
	srv := httpapi.NewServer(productsSvc, cartsSvc, ordersSvc, logger)

	httpServer := &http.Server{
		Addr:    cfg.ServeRESTAddress,
		Handler: srv.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
	logger.Info("server stopped")
	return nil
}
