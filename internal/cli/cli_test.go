package cli

import (
	"strings"
	"testing"
)

func TestRatifyRequiresExactlyOneVerdict(t *testing.T) {
	ratifyApprove = false
	ratifyDeny = false
	err := ratifyCmd.RunE(ratifyCmd, []string{"abc123"})
	if err == nil || !strings.Contains(err.Error(), "--approve or --deny") {
		t.Fatalf("err = %v", err)
	}

	ratifyApprove = true
	ratifyDeny = true
	if err := ratifyCmd.RunE(ratifyCmd, []string{"abc123"}); err == nil {
		t.Fatal("expected error when both flags set")
	}
}

func TestRootRegistersCommands(t *testing.T) {
	for _, name := range []string{"run", "status", "version", "ratify", "ratifications", "decisions"} {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
