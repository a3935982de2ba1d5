package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/davicafu/neuroassist/internal/config"
	sharedDomain "github.com/davicafu/neuroassist/internal/shared/domain"
	mongoOutbox "github.com/davicafu/neuroassist/internal/shared/infra/platform/db/mongodb"
	pgOutbox "github.com/davicafu/neuroassist/internal/shared/infra/platform/db/postgres"
	sqliteOutbox "github.com/davicafu/neuroassist/internal/shared/infra/platform/db/sqlite"
	sharedUtils "github.com/davicafu/neuroassist/internal/shared/infra/utils"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
	taskMongo "github.com/davicafu/neuroassist/internal/task/infra/outbound/db/mongodb"
	taskPostgres "github.com/davicafu/neuroassist/internal/task/infra/outbound/db/postgres"
	taskSQLite "github.com/davicafu/neuroassist/internal/task/infra/outbound/db/sqlite"
	"github.com/davicafu/neuroassist/internal/task/infra/outbound/filesystem"
	"github.com/davicafu/neuroassist/internal/task/infra/outbound/memory"

	_ "github.com/jackc/pgx/v5/stdlib"
	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"
)

const (
	pingAttempts = 5
	pingDelay    = time.Second
)

// storage agrupa el store elegido, su outbox (nil si el driver no lo tiene)
// y las funciones de cierre.
type storage struct {
	store  taskDomain.TaskStore
	outbox sharedDomain.OutboxRepository
	closer func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := openSQL(ctx, "sqlite", cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		// SQLite no admite escrituras concurrentes.
		db.SetMaxOpenConns(1)
		if err := taskSQLite.InitSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &storage{
			store:  taskSQLite.NewTaskStoreSQLite(db),
			outbox: sqliteOutbox.NewOutboxRepoSQLite(db),
			closer: func() { db.Close() },
		}, nil

	case config.DriverPostgres:
		db, err := openSQL(ctx, "pgx", cfg.PostgresURL, log)
		if err != nil {
			return nil, err
		}
		if err := taskPostgres.InitSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &storage{
			store:  taskPostgres.NewTaskStorePostgres(db),
			outbox: pgOutbox.NewOutboxRepoPostgres(db),
			closer: func() { db.Close() },
		}, nil

	case config.DriverMongoDB:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		store, err := taskMongo.NewTaskStoreMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &storage{
			store:  store,
			outbox: mongoOutbox.NewOutboxRepoMongoDB(client, cfg.MongoDB),
			closer: func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.DriverFile:
		return &storage{store: filesystem.NewJSONTaskStorage(cfg.JSONPath), closer: func() {}}, nil

	case config.DriverMemory:
		log.Warn("⚠️ Store en memoria: las tareas se pierden al reiniciar")
		return &storage{store: memory.NewTaskStoreMemory(), closer: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openSQL abre la conexión y reintenta el ping mientras la base de datos arranca.
func openSQL(ctx context.Context, driver, dsn string, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	err = sharedUtils.Retry(ctx, pingAttempts, pingDelay, func() error {
		if err := db.PingContext(ctx); err != nil {
			log.Warn("Base de datos no disponible, reintentando", zap.String("driver", driver), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	return db, nil
}
