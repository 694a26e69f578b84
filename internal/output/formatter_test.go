package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{"TOON", FormatTOON},
		{"", FormatText},
		{"invalid", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidFormat(t *testing.T) {
	for _, s := range []string{"", "text", "json", "Markdown", "md", "toon"} {
		if !ValidFormat(s) {
			t.Errorf("ValidFormat(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"xml", "csv", "yaml"} {
		if ValidFormat(s) {
			t.Errorf("ValidFormat(%q) = true, want false", s)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter(FormatJSON, "", true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	defer f.Close()

	if f.Format() != FormatJSON {
		t.Errorf("Format() = %q, want json", f.Format())
	}
	if !f.Colored() {
		t.Error("Colored() should be true for stdout")
	}
	if f.file != nil {
		t.Error("file should be nil for stdout")
	}
	if f.Writer() == nil {
		t.Error("Writer() should not be nil")
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "summary.txt")

	f, err := NewFormatter(FormatText, outputPath, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.Colored() {
		t.Error("file output should never be colored")
	}
	f.Info("hello %s", "file")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello file\n" {
		t.Errorf("file content = %q", string(data))
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	if _, err := NewFormatter(FormatText, "/nonexistent/dir/out.txt", false); err == nil {
		t.Error("NewFormatter() should fail for an unwritable path")
	}
}

func TestTableRenderText(t *testing.T) {
	table := NewTable("Unused Scripts",
		[]string{"Relative Path", "GUID"},
		[][]string{{"Assets/A.cs", "aa"}, {"Assets/B.cs", ""}},
		[]string{"Total: 2", ""},
		nil,
	)

	var buf bytes.Buffer
	if err := table.RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Unused Scripts\n==============", "Assets/A.cs", "Assets/B.cs", "aa"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderText() missing %q in:\n%s", want, out)
		}
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	table := NewTable("Scenes", []string{"Scene", "Objects"}, [][]string{{"Main", "2"}}, []string{"Total", "2"}, nil)

	var buf bytes.Buffer
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}

	want := "## Scenes\n\n| Scene | Objects |\n| --- | --- |\n| Main | 2 |\n| Total | 2 |\n\n"
	if buf.String() != want {
		t.Errorf("RenderMarkdown() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestTableRenderData(t *testing.T) {
	table := NewTable("", []string{"Relative Path", "GUID"}, [][]string{{"Assets/A.cs", "aa"}, {"Assets/B.cs"}}, nil, nil)

	rows, ok := table.RenderData().([]map[string]string)
	if !ok {
		t.Fatalf("RenderData() type = %T", table.RenderData())
	}
	if len(rows) != 2 || rows[0]["GUID"] != "aa" || rows[1]["Relative Path"] != "Assets/B.cs" {
		t.Errorf("RenderData() = %v", rows)
	}
	if _, ok := rows[1]["GUID"]; ok {
		t.Error("short rows should not fill missing columns")
	}

	wrapped := NewTable("", nil, nil, nil, map[string]int{"n": 1})
	if _, ok := wrapped.RenderData().(map[string]int); !ok {
		t.Error("RenderData() should return wrapped data when set")
	}
}

func TestListingRender(t *testing.T) {
	l := &Listing{Title: "Main", Lines: []string{"Root", "--Child"}}

	var text bytes.Buffer
	if err := l.RenderText(&text, false); err != nil {
		t.Fatal(err)
	}
	if text.String() != "Main\n----\nRoot\n--Child\n" {
		t.Errorf("RenderText() = %q", text.String())
	}

	var md bytes.Buffer
	if err := l.RenderMarkdown(&md); err != nil {
		t.Fatal(err)
	}
	if md.String() != "### Main\n\n```\nRoot\n--Child\n```\n\n" {
		t.Errorf("RenderMarkdown() = %q", md.String())
	}

	if l.RenderData() != l {
		t.Error("RenderData() should return the listing when no data is wrapped")
	}
}

func TestReportRender(t *testing.T) {
	r := &Report{
		Title: "Scene Hierarchy",
		Sections: []Renderable{
			&Listing{Title: "A", Lines: []string{"Root"}},
			&Listing{Title: "B", Lines: []string{"Other"}},
		},
	}

	var text bytes.Buffer
	if err := r.RenderText(&text, false); err != nil {
		t.Fatal(err)
	}
	want := "Scene Hierarchy\n===============\n\nA\n-\nRoot\n\nB\n-\nOther\n"
	if text.String() != want {
		t.Errorf("RenderText() =\n%q\nwant\n%q", text.String(), want)
	}

	var md bytes.Buffer
	if err := r.RenderMarkdown(&md); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(md.String(), "# Scene Hierarchy\n\n### A\n") {
		t.Errorf("RenderMarkdown() = %q", md.String())
	}

	data, ok := r.RenderData().(map[string]any)
	if !ok {
		t.Fatalf("RenderData() type = %T", r.RenderData())
	}
	if sections, _ := data["sections"].([]any); len(sections) != 2 {
		t.Errorf("RenderData() sections = %v", data["sections"])
	}
}

func TestFormatterOutputRenderable(t *testing.T) {
	listing := &Listing{Title: "Main", Lines: []string{"Root"}, Data: map[string]string{"scene": "Main"}}

	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "Main\n----\nRoot\n"},
		{FormatMarkdown, "### Main\n\n```\nRoot\n```\n\n"},
		{FormatJSON, "{\n  \"scene\": \"Main\"\n}\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewFormatterTo(&buf, tt.format, false).Output(listing); err != nil {
				t.Fatalf("Output() error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Output() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestFormatterOutputTOON(t *testing.T) {
	type row struct {
		Path string `json:"path" toon:"path"`
		GUID string `json:"guid" toon:"guid"`
	}
	data := struct {
		Unused []row `json:"unused" toon:"unused"`
	}{Unused: []row{{Path: "Assets/A.cs", GUID: "aa"}}}

	var buf bytes.Buffer
	if err := NewFormatterTo(&buf, FormatTOON, false).Output(data); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "unused") || !strings.Contains(out, "Assets/A.cs") {
		t.Errorf("TOON output missing fields:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("TOON output should end with a newline")
	}
}

func TestFormatterOutputRaw(t *testing.T) {
	data := map[string]int{"scenes": 2}

	var jsonBuf bytes.Buffer
	if err := NewFormatterTo(&jsonBuf, FormatText, false).Output(data); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(jsonBuf.Bytes(), &decoded); err != nil {
		t.Fatalf("text fallback should be JSON: %v", err)
	}
	if decoded["scenes"] != 2 {
		t.Errorf("decoded = %v", decoded)
	}

	var mdBuf bytes.Buffer
	if err := NewFormatterTo(&mdBuf, FormatMarkdown, false).Output(data); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(mdBuf.String(), "```json\n") || !strings.HasSuffix(mdBuf.String(), "```\n") {
		t.Errorf("markdown raw output = %q", mdBuf.String())
	}
}

func TestFormatterMessageMethods(t *testing.T) {
	tests := []struct {
		name string
		call func(f *Formatter)
		want string
	}{
		{"success", func(f *Formatter) { f.Success("done %d", 1) }, "done 1\n"},
		{"warning", func(f *Formatter) { f.Warning("skipped %s", "x") }, "WARNING: skipped x\n"},
		{"error", func(f *Formatter) { f.Error("failed") }, "ERROR: failed\n"},
		{"info", func(f *Formatter) { f.Info("scanning") }, "scanning\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.call(NewFormatterTo(&buf, FormatText, false))
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestFormatterMessageColoredGoesToWriter(t *testing.T) {
	var buf bytes.Buffer
	NewFormatterTo(&buf, FormatText, true).Success("done")
	if !strings.Contains(buf.String(), "done") {
		t.Errorf("colored message should be written to the formatter's writer, got %q", buf.String())
	}
}
