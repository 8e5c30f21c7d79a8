package cmd

import "testing"

func TestAuditCommandMetadata(t *testing.T) {
	if auditCmd.Use != "audit <root>" {
		t.Errorf("expected Use='audit <root>', got %q", auditCmd.Use)
	}
	if auditCmd.Short == "" {
		t.Error("audit command should have a short description")
	}
	if auditCmd.RunE == nil {
		t.Error("audit command should have a RunE function")
	}
}

func TestAuditCommandFlags(t *testing.T) {
	for _, name := range []string{"library", "grep-shield", "include-vendored", "config"} {
		if auditCmd.Flags().Lookup(name) == nil {
			t.Errorf("audit command missing flag %q", name)
		}
	}
}

func TestAuditCommandRegisteredOnRoot(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() == "audit" {
			return
		}
	}
	t.Error("audit command should be registered on rootCmd")
}
