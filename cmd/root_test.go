package cmd

import "testing"

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"serve":   false,
		"search":  false,
		"imagine": false,
		"mcp":     false,
		"version": false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
}

func TestRootDefaultsToServe(t *testing.T) {
	if rootCmd.Run == nil {
		t.Fatalf("root command has no default run")
	}
}
