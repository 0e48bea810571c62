package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensetrack/internal/config"
	"expensetrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                  backendType,
		DataDirectory:         appConfig.DataDir,
		SQLiteDBPath:          appConfig.SQLiteDBPath,
		AzureConnectionString: appConfig.AzureStorageConnectionString,
		AzureContainer:        appConfig.AzureStorageContainer,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case FileBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for file backend")
		}
	case BlobBackend:
		if c.AzureConnectionString == "" || c.AzureContainer == "" {
			return fmt.Errorf("connection string and container are required for blob backend")
		}
	case MemoryBackend:
		// Seeded from DataDirectory when present
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		kv, err := storage.NewSQLiteKV(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &BackendResult{KV: kv, Cleanup: kv.Close}, nil

	case FileBackend:
		kv, err := storage.NewFileKV(config.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.Info("Initialized file backend", "data_directory", config.DataDirectory)
		return &BackendResult{KV: kv}, nil

	case BlobBackend:
		kv, err := storage.NewBlobKV(ctx, config.AzureConnectionString, config.AzureContainer)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob store: %w", err)
		}
		f.logger.Info("Initialized Azure Blob backend", "container", config.AzureContainer)
		return &BackendResult{KV: kv}, nil

	default:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		f.logger.Info("Initialized memory backend", "data_directory", dataDir)
		return &BackendResult{KV: storage.NewMemoryKVFromDir(dataDir)}, nil
	}
}
