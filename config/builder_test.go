package config

import (
	"testing"

	"github.com/jpalmerr/adcbridge"
)

func TestBuildOptions_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := BuildOptions(cfg)
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}

	b, err := adcbridge.New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if b.Device() != "/dev/ttyUSB0" {
		t.Errorf("Device() = %q, want /dev/ttyUSB0", b.Device())
	}
	if b.BaudRate() != 115200 {
		t.Errorf("BaudRate() = %d, want 115200", b.BaudRate())
	}
	if b.Port() != 8080 {
		t.Errorf("Port() = %d, want 8080", b.Port())
	}
	if b.Path() != "/ws" {
		t.Errorf("Path() = %q, want /ws", b.Path())
	}
}

func TestBuildOptions_AllFields(t *testing.T) {
	cfg, err := Parse([]byte(`
title: Bench
port: 9090
path: /adc
pattern: 'ch0=(\d+)'
serial:
  device: /dev/ttyACM0
  baud_rate: 9600
discovery:
  enabled: true
  instance: bench
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := BuildOptions(cfg)
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}

	// device, baud, delimiter, port, path + title, pattern, discovery
	if len(opts) != 8 {
		t.Errorf("len(opts) = %d, want 8", len(opts))
	}

	b, err := adcbridge.New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if b.Device() != "/dev/ttyACM0" {
		t.Errorf("Device() = %q, want /dev/ttyACM0", b.Device())
	}
	if b.BaudRate() != 9600 {
		t.Errorf("BaudRate() = %d, want 9600", b.BaudRate())
	}
	if b.Port() != 9090 {
		t.Errorf("Port() = %d, want 9090", b.Port())
	}
	if b.Path() != "/adc" {
		t.Errorf("Path() = %q, want /adc", b.Path())
	}
}

func TestBuildOptions_InvalidPattern(t *testing.T) {
	// bypasses Parse validation
	cfg := &Config{
		Port:    8080,
		Path:    "/ws",
		Pattern: "(",
		Serial:  SerialConfig{Device: "/dev/ttyUSB0", BaudRate: 115200},
	}

	if _, err := BuildOptions(cfg); err == nil {
		t.Fatal("BuildOptions() expected error for invalid pattern, got nil")
	}
}
