package natsclient

import (
	"errors"
	"testing"

	"github.com/sifan077/PowerMark/config"
)

func TestConnect_Disabled(t *testing.T) {
	conn, js, err := Connect(config.NATSConfig{Enabled: false}, nil)
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
	if conn != nil || js != nil {
		t.Errorf("expected nil connection when disabled")
	}
}

func TestURL(t *testing.T) {
	tests := map[string]struct {
		cfg  config.NATSConfig
		want string
	}{
		"defaults": {config.NATSConfig{}, "nats://localhost:4222"},
		"custom":   {config.NATSConfig{Host: "bus", Port: 4333}, "nats://bus:4333"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := URL(tt.cfg); got != tt.want {
				t.Errorf("URL = %q, want %q", got, tt.want)
			}
		})
	}
}
