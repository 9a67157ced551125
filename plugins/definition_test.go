package plugins

import (
	"strings"
	"testing"

	"github.com/kingrea/strategy-compiler/internal/stage"
)

func TestStageDefinitionValidate(t *testing.T) {
	def := StageDefinition{
		Kind:    " Fuse_All_Reduce ",
		Name:    "FuseAllReduceOptimizer",
		Accepts: []string{"AMP", " ", "graph_execution"},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("expected definition to validate, got %v", err)
	}
	info := def.Info()
	if info.Kind != "fuse_all_reduce" || info.Family != stage.FamilyMeta {
		t.Fatalf("unexpected info: %+v", info)
	}
	if got := def.Normalized().Accepts; len(got) != 2 || got[0] != "amp" {
		t.Fatalf("unexpected accepts: %v", got)
	}
}

func TestStageDefinitionValidateFailures(t *testing.T) {
	tests := []struct {
		name string
		def  StageDefinition
		msg  string
	}{
		{
			name: "missing kind",
			def:  StageDefinition{Name: "X"},
			msg:  "kind is required",
		},
		{
			name: "bad kind",
			def:  StageDefinition{Kind: "fuse-all", Name: "X"},
			msg:  "lower snake case",
		},
		{
			name: "missing name",
			def:  StageDefinition{Kind: "fuse"},
			msg:  "name is required",
		},
		{
			name: "unknown family",
			def:  StageDefinition{Kind: "fuse", Name: "X", Family: "hybrid"},
			msg:  "unknown family",
		},
		{
			name: "accepts itself",
			def:  StageDefinition{Kind: "fuse", Name: "X", Accepts: []string{"fuse"}},
			msg:  "names the stage itself",
		},
		{
			name: "duplicate accepts",
			def:  StageDefinition{Kind: "fuse", Name: "X", Accepts: []string{"amp", "AMP"}},
			msg:  "duplicates",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.def.Validate(); err == nil || !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected error containing %q, got %v", tc.msg, err)
			}
		})
	}
}
