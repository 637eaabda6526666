package cmd

import "testing"

func TestSplitTableName_WithSchema(t *testing.T) {
	schema, table := splitTableName("billing.invoices")
	if schema != "billing" || table != "invoices" {
		t.Errorf("got (%q, %q), want (%q, %q)", schema, table, "billing", "invoices")
	}
}

func TestSplitTableName_DefaultsToPublic(t *testing.T) {
	schema, table := splitTableName("invoices")
	if schema != "public" || table != "invoices" {
		t.Errorf("got (%q, %q), want (%q, %q)", schema, table, "public", "invoices")
	}
}

func TestPlanCmd_Structure(t *testing.T) {
	if planCmd == nil {
		t.Fatal("planCmd should not be nil")
	}

	if planCmd.Use != "plan [schema.table]" {
		t.Errorf("planCmd.Use = %q, want %q", planCmd.Use, "plan [schema.table]")
	}

	if !planCmd.SilenceUsage {
		t.Error("planCmd should set SilenceUsage to true")
	}

	if planCmd.RunE == nil {
		t.Error("planCmd should use RunE for error handling")
	}

	found := false
	for _, c := range rootCmd.Commands() {
		if c.Use == planCmd.Use {
			found = true
			break
		}
	}
	if !found {
		t.Error("plan command should be registered with root command")
	}
}

func TestPlanCmd_Flags(t *testing.T) {
	chunkLimit, err := planCmd.Flags().GetInt("chunk-limit")
	if err != nil {
		t.Fatalf("chunk-limit flag should exist: %v", err)
	}
	if chunkLimit != 10000 {
		t.Errorf("chunk-limit default = %d, want 10000", chunkLimit)
	}

	if _, err := planCmd.Flags().GetBool("only-switch"); err != nil {
		t.Errorf("only-switch flag should exist: %v", err)
	}
	if _, err := planCmd.Flags().GetBool("only-validate-constraints"); err != nil {
		t.Errorf("only-validate-constraints flag should exist: %v", err)
	}
}
