package database

import (
	"path/filepath"
	"testing"

	"pocketledger/internal/config"
)

func TestConfigDSN(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		want   string
	}{
		{
			name:   "postgres",
			driver: DriverPostgres,
			want:   "host=db port=5432 user=u password=p dbname=ledger sslmode=disable",
		},
		{
			name:   "mysql",
			driver: DriverMySQL,
			want:   "u:p@tcp(db:5432)/ledger?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name:   "sqlite",
			driver: DriverSQLite,
			want:   "ledger",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(&config.Config{
				DBDriver:   tt.driver,
				DBHost:     "db",
				DBPort:     "5432",
				DBUser:     "u",
				DBPassword: "p",
				DBName:     "ledger",
				DBSSLMode:  "disable",
			})
			if got := cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewManager_SQLite(t *testing.T) {
	cfg := &Config{
		Driver:   DriverSQLite,
		DBName:   filepath.Join(t.TempDir(), "ledger.db"),
		LogLevel: "silent",
	}

	manager, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	defer func() {
		if err := manager.Close(); err != nil {
			t.Errorf("failed to close manager: %v", err)
		}
	}()

	if err := manager.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	var count int64
	for _, table := range []string{"users", "accounts", "categories", "transactions", "audit_logs"} {
		if err := manager.DB().Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestNewManager_UnsupportedDriver(t *testing.T) {
	if _, err := NewManager(&Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
