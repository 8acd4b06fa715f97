package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"no args defaults to serve", nil, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"extra args ignored", []string{"worker", "--flag", "value"}, CommandWorker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.args)
			if err != nil {
				t.Fatalf("ParseCommand(%v) error: %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseCommand_UnknownReturnsError(t *testing.T) {
	for _, args := range [][]string{{"unknown"}, {"Serve"}, {"--port=8080"}} {
		cmd, err := ParseCommand(args)
		if err == nil {
			t.Errorf("ParseCommand(%v) = %q, want error", args, cmd)
			continue
		}
		if !strings.Contains(err.Error(), "available") {
			t.Errorf("error should list available commands: %v", err)
		}
	}
}

func TestRun_UnknownCommand_ReturnsErrorBeforeInit(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(&buf, []string{"srve"}); err == nil {
		t.Fatal("Run with unknown command should return error")
	}
	if buf.Len() != 0 {
		t.Errorf("unknown command should fail before logging is set up: %s", buf.String())
	}
}
