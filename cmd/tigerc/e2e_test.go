package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// E2ETestSpec mirrors cmd/ralph-cc/integration_test.go's E2EAsmTestSpec: a
// YAML-fixture-driven table of whole-pipeline expectations against tigerc's
// rendered assembly text (spec §8).
type E2ETestSpec struct {
	Name         string   `yaml:"name"`
	Input        string   `yaml:"input"`
	Expect       []string `yaml:"expect"`
	ExpectOrder  []string `yaml:"expect_order"`
	ExpectUnique []string `yaml:"expect_unique"`
	ExpectNot    []string `yaml:"expect_not"`
	Skip         string   `yaml:"skip,omitempty"`
}

type E2ETestFile struct {
	Tests []E2ETestSpec `yaml:"tests"`
}

func TestE2EBuildYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/e2e.yaml")
	if err != nil {
		t.Fatalf("e2e.yaml not found: %v", err)
	}

	var testFile E2ETestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse e2e.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip != "" {
				t.Skip(tc.Skip)
			}

			tmpDir := t.TempDir()
			inputFile := filepath.Join(tmpDir, "test.json")
			if err := os.WriteFile(inputFile, []byte(tc.Input), 0644); err != nil {
				t.Fatalf("failed to write test input: %v", err)
			}

			var out, errOut bytes.Buffer
			cmd := newRootCmd(&out, &errOut)
			cmd.SetArgs([]string{"build", inputFile})
			if err := cmd.Execute(); err != nil {
				t.Fatalf("tigerc build failed: %v\nStderr: %s", err, errOut.String())
			}

			output := out.String()

			for _, exp := range tc.Expect {
				if !strings.Contains(output, exp) {
					t.Errorf("expected output to contain %q\nGot:\n%s", exp, output)
				}
			}

			if len(tc.ExpectOrder) > 0 {
				lastIdx := -1
				for _, exp := range tc.ExpectOrder {
					idx := strings.Index(output, exp)
					if idx == -1 {
						t.Errorf("expected output to contain %q for order check\nGot:\n%s", exp, output)
						continue
					}
					if idx <= lastIdx {
						t.Errorf("expected %q to appear after previous pattern (position %d vs %d)\nGot:\n%s", exp, idx, lastIdx, output)
					}
					lastIdx = idx
				}
			}

			for _, exp := range tc.ExpectUnique {
				if count := strings.Count(output, exp); count != 1 {
					t.Errorf("expected %q to appear exactly once, found %d times\nGot:\n%s", exp, count, output)
				}
			}

			for _, exp := range tc.ExpectNot {
				if strings.Contains(output, exp) {
					t.Errorf("expected output NOT to contain %q\nGot:\n%s", exp, output)
				}
			}
		})
	}
}
