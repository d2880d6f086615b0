package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/emojiimport/internal/core"
)

// ===== Command Tests =====

func TestRootCmd_SourceSubcommands(t *testing.T) {
	root := newRootCmd()
	var defs []core.SourceDefinition
	for _, group := range core.SourceGroups() {
		defs = append(defs, core.SourcesByGroup(group)...)
	}
	if len(defs) != core.SourceCount() {
		t.Fatalf("grouped %d sources, registered %d", len(defs), core.SourceCount())
	}
	for _, def := range defs {
		cmd, _, err := root.Find([]string{def.Info.Key})
		if err != nil {
			t.Errorf("Find(%q) error = %v", def.Info.Key, err)
			continue
		}
		if cmd.Name() != def.Info.Key {
			t.Errorf("Find(%q) = %q", def.Info.Key, cmd.Name())
		}
		if cmd.GroupID != def.Info.Group {
			t.Errorf("%s GroupID = %q, want %q", def.Info.Key, cmd.GroupID, def.Info.Group)
		}
	}
}

func TestSourceCmd_Args(t *testing.T) {
	tests := []struct {
		name    string
		info    core.SourceInfo
		args    []string
		wantErr bool
	}{
		{"required present", core.SourceInfo{Key: "a", Param: "id", ParamRequired: true}, []string{"1"}, false},
		{"required missing", core.SourceInfo{Key: "a", Param: "id", ParamRequired: true}, nil, true},
		{"optional missing", core.SourceInfo{Key: "b", Param: "channel"}, nil, false},
		{"optional too many", core.SourceInfo{Key: "b", Param: "channel"}, []string{"x", "y"}, true},
		{"no param", core.SourceInfo{Key: "c"}, nil, false},
		{"no param given one", core.SourceInfo{Key: "c"}, []string{"x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := sourceCmd(core.SourceDefinition{Info: tt.info}, &runFlags{})
			err := cmd.Args(cmd, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("Args(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestSourceCmd_Use(t *testing.T) {
	cmd := sourceCmd(core.SourceDefinition{Info: core.SourceInfo{Key: "steamgame", Param: "appid", ParamRequired: true}}, &runFlags{})
	if cmd.Use != "steamgame <appid>" {
		t.Errorf("Use = %q", cmd.Use)
	}
	cmd = sourceCmd(core.SourceDefinition{Info: core.SourceInfo{Key: "twitchchannel", Param: "channel"}}, &runFlags{})
	if cmd.Use != "twitchchannel [channel]" {
		t.Errorf("Use = %q", cmd.Use)
	}
}

// ===== Flag Tests =====

func TestRunFlags_Defaults(t *testing.T) {
	root := newRootCmd()
	if err := root.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	for name, want := range map[string]string{"overwrite": "true", "visible": "true", "dry-run": "false", "prefix": ""} {
		f := root.PersistentFlags().Lookup(name)
		if f == nil {
			t.Errorf("flag --%s not defined", name)
			continue
		}
		if f.DefValue != want {
			t.Errorf("--%s default = %q, want %q", name, f.DefValue, want)
		}
	}
}

func TestRunFlags_Options(t *testing.T) {
	flags := &runFlags{}
	cmd := &cobra.Command{Use: "test"}
	flags.register(cmd)
	err := cmd.PersistentFlags().Parse([]string{
		"--prefix", "tf2_", "--match", "^smile", "--lower", "--min-width", "32",
		"--square", "--overwrite=false", "--apng", "--dry-run",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	got := flags.options()
	want := core.RunOptions{
		Prefix:          "tf2_",
		Match:           "^smile",
		Lowercase:       true,
		MinWidth:        32,
		ForceSquare:     true,
		Overwrite:       false,
		VisibleInPicker: true,
		AnimatedToAPNG:  true,
		DryRun:          true,
	}
	if got != want {
		t.Errorf("options() = %+v, want %+v", got, want)
	}
	if _, err := core.NewRunConfig(got); err != nil {
		t.Errorf("NewRunConfig() error = %v", err)
	}
}

func TestRunImport_InvalidFilter(t *testing.T) {
	flags := &runFlags{match: "(", overwrite: true, visible: true}
	err := runImport(&cobra.Command{}, "directory", ".", flags)
	if !errors.Is(err, core.ErrConfig) {
		t.Errorf("runImport() error = %v, want ErrConfig", err)
	}
}

// ===== Summary Tests =====

func testReport() *core.Report {
	return &core.Report{
		RunID:      uuid.MustParse("6f1c1d2e-0000-4000-8000-000000000001"),
		Source:     "pack",
		Candidates: 4,
		Imported:   1,
		Filtered:   1,
		Exists:     1,
		Failed:     1,
		Duration:   1500 * time.Millisecond,
		Results: []core.ItemResult{
			{Label: "blobcat", Shortcode: "blob_blobcat", Outcome: core.OutcomeImported, Width: 64, Height: 64, Bytes: 2048, Replaced: true},
			{Label: "other", Outcome: core.OutcomeFiltered, Reason: "label does not match filter"},
			{Label: "blobfox", Shortcode: "blob_blobfox", Outcome: core.OutcomeExists},
			{Label: "broken", Locator: "https://x.test/broken.png", Shortcode: "blob_broken", Outcome: core.OutcomeFailed,
				Kind: core.KindFetch, Code: "FETCH001", Reason: "GET https://x.test/broken.png: unexpected status 404 Not Found"},
		},
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, testReport())
	out := buf.String()

	for _, want := range []string{
		"blob_blobcat",
		"64x64 2.0KB (replaced)",
		"other",
		"skip: filtered",
		"skip: exists",
		"[FETCH001]",
		"4 candidates: 1 imported, 1 filtered, 1 existing, 1 failed (1.5s)",
		"broken <https://x.test/broken.png>: GET https://x.test/broken.png: unexpected status 404",
		"6f1c1d2e-0000-4000-8000-000000000001",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[dry run]") {
		t.Error("output marked as dry run")
	}
}

func TestPrintReport_DryRunNoFailures(t *testing.T) {
	r := &core.Report{DryRun: true, Candidates: 1, Imported: 1, Results: []core.ItemResult{
		{Label: "a", Shortcode: "a", Outcome: core.OutcomeImported, Width: 16, Height: 16, Bytes: 100},
	}}
	var buf bytes.Buffer
	printReport(&buf, r)
	out := buf.String()

	if !strings.Contains(out, "[dry run] 1 candidates") {
		t.Errorf("output missing dry run totals:\n%s", out)
	}
	if strings.Contains(out, "Failures:") {
		t.Errorf("output lists failures:\n%s", out)
	}
}

func TestByteSize(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{512, "512B"},
		{1536, "1.5KB"},
		{3 << 20, "3.0MB"},
	}
	for _, tt := range tests {
		if got := byteSize(tt.n); got != tt.want {
			t.Errorf("byteSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
