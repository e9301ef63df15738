package app

import "testing"

func TestParseCommand_EmptyArgs_DefaultsToServe(t *testing.T) {
	got := ParseCommand(nil)
	if got != CommandServe {
		t.Errorf("ParseCommand(nil) = %q, want %q", got, CommandServe)
	}
}

func TestParseCommand_Serve(t *testing.T) {
	got := ParseCommand([]string{"serve"})
	if got != CommandServe {
		t.Errorf("ParseCommand(serve) = %q, want %q", got, CommandServe)
	}
}

func TestParseCommand_Worker(t *testing.T) {
	got := ParseCommand([]string{"worker"})
	if got != CommandWorker {
		t.Errorf("ParseCommand(worker) = %q, want %q", got, CommandWorker)
	}
}

func TestParseCommand_Migrate(t *testing.T) {
	got := ParseCommand([]string{"migrate"})
	if got != CommandMigrate {
		t.Errorf("ParseCommand(migrate) = %q, want %q", got, CommandMigrate)
	}
}

func TestParseCommand_Healthcheck(t *testing.T) {
	got := ParseCommand([]string{"healthcheck"})
	if got != CommandHealthcheck {
		t.Errorf("ParseCommand(healthcheck) = %q, want %q", got, CommandHealthcheck)
	}
}

func TestParseCommand_UnknownDefaultsToServe(t *testing.T) {
	got := ParseCommand([]string{"unknown-command"})
	if got != CommandServe {
		t.Errorf("ParseCommand(unknown-command) = %q, want %q", got, CommandServe)
	}
}

func TestParseCommand_IgnoresExtraArgs(t *testing.T) {
	got := ParseCommand([]string{"worker", "--verbose", "extra"})
	if got != CommandWorker {
		t.Errorf("ParseCommand(worker --verbose extra) = %q, want %q", got, CommandWorker)
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{CommandServe, "serve"},
		{CommandWorker, "worker"},
		{CommandMigrate, "migrate"},
		{CommandHealthcheck, "healthcheck"},
	}

	for _, tt := range tests {
		if string(tt.cmd) != tt.want {
			t.Errorf("Command = %q, want %q", tt.cmd, tt.want)
		}
	}
}
