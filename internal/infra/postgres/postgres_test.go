package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/PowerMark/config"
)

func TestConnString(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PostgresConfig
		want string
	}{
		{
			name: "defaults",
			cfg:  config.PostgresConfig{Database: "powermark"},
			want: "postgres://localhost:5432/powermark?sslmode=disable",
		},
		{
			name: "credentials are escaped",
			cfg: config.PostgresConfig{
				Host: "db", Port: 6543, User: "mark", Password: "p@ss/word",
				Database: "powermark", SSLMode: "require",
			},
			want: "postgres://mark:p%40ss%2Fword@db:6543/powermark?sslmode=require",
		},
		{
			name: "user without password",
			cfg:  config.PostgresConfig{User: "mark", Database: "powermark"},
			want: "postgres://mark@localhost:5432/powermark?sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConnString(tt.cfg); got != tt.want {
				t.Errorf("ConnString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyPoolTuning(t *testing.T) {
	poolCfg, err := pgxpool.ParseConfig("postgres://localhost:5432/powermark")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	defaultIdle := poolCfg.MaxConnIdleTime

	applyPoolTuning(poolCfg, config.PostgresConfig{
		MaxConns:        12,
		MaxConnLifetime: "30m",
		MaxConnIdleTime: "not-a-duration",
	})

	if poolCfg.MaxConns != 12 {
		t.Errorf("MaxConns = %d", poolCfg.MaxConns)
	}
	if poolCfg.MaxConnLifetime != 30*time.Minute {
		t.Errorf("MaxConnLifetime = %v", poolCfg.MaxConnLifetime)
	}
	if poolCfg.MaxConnIdleTime != defaultIdle {
		t.Errorf("malformed idle time should keep default, got %v", poolCfg.MaxConnIdleTime)
	}
}
