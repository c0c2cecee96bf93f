package nugetmeta

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testNuspec = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd">
  <metadata minClientVersion="2.12">
    <id>Serilog</id>
    <version>3.1.1</version>
    <title>Serilog</title>
    <authors>Serilog Contributors</authors>
    <license type="expression">Apache-2.0</license>
    <licenseUrl>https://licenses.nuget.org/Apache-2.0</licenseUrl>
    <projectUrl>
      https://serilog.net/
    </projectUrl>
    <description>Simple .NET logging with fully-structured events</description>
    <summary></summary>
    <copyright>Copyright © 2013-2023 Serilog Contributors</copyright>
    <tags>serilog logging semantic structured</tags>
    <dependencies>
      <group targetFramework=".NETStandard2.0" />
    </dependencies>
  </metadata>
</package>`

func TestParseNuspec(t *testing.T) {
	n, err := ParseNuspec(strings.NewReader(testNuspec))
	if err != nil {
		t.Fatalf("ParseNuspec() error: %v", err)
	}

	checks := []struct {
		field string
		got   string
		want  string
	}{
		{"ID", n.ID(), "Serilog"},
		{"Version", n.Version(), "3.1.1"},
		{"Title", n.Title(), "Serilog"},
		{"Authors", n.Authors(), "Serilog Contributors"},
		{"Description", n.Description(), "Simple .NET logging with fully-structured events"},
		{"Summary", n.Summary(), ""},
		{"Copyright", n.Copyright(), "Copyright © 2013-2023 Serilog Contributors"},
		{"LicenseURL", n.LicenseURL(), "https://licenses.nuget.org/Apache-2.0"},
		{"ProjectURL", n.ProjectURL(), "https://serilog.net/"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}

	lm := n.License()
	if lm == nil {
		t.Fatal("License() = nil")
	}
	if lm.Type != LicenseTypeExpression || lm.Value != "Apache-2.0" {
		t.Errorf("License() = %+v", lm)
	}
	if diff := cmp.Diff([]string{"Apache-2.0"}, lm.Expression.Leaves()); diff != "" {
		t.Errorf("Expression leaves mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNuspecWithoutNamespace(t *testing.T) {
	n, err := ParseNuspec(strings.NewReader(`<package><metadata><id>A</id><version>1.0.0</version><authors>me</authors></metadata></package>`))
	if err != nil {
		t.Fatalf("ParseNuspec() error: %v", err)
	}
	if n.Authors() != "me" {
		t.Errorf("Authors() = %q, want %q", n.Authors(), "me")
	}
	if n.License() != nil {
		t.Errorf("License() = %+v, want nil", n.License())
	}
}

func TestParseNuspecLicenseFile(t *testing.T) {
	n, err := ParseNuspec(strings.NewReader(`<package><metadata>
  <license type="File">docs/LICENSE.txt</license>
  <licenseUrl>https://aka.ms/deprecateLicenseUrl</licenseUrl>
</metadata></package>`))
	if err != nil {
		t.Fatalf("ParseNuspec() error: %v", err)
	}

	lm := n.License()
	if lm == nil || lm.Type != LicenseTypeFile || lm.Value != "docs/LICENSE.txt" {
		t.Fatalf("License() = %+v", lm)
	}
	if lm.Expression != nil {
		t.Errorf("Expression = %+v, want nil for file licenses", lm.Expression)
	}
}

func TestParseNuspecErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"truncated", "<package><metadata><id>A</id>"},
		{"not xml", "{\"id\": \"A\"}"},
		{"no metadata", "<package><files/></package>"},
		{"bad expression", `<package><metadata><license type="expression">MIT AND</license></metadata></package>`},
		{"unknown license id", `<package><metadata><license type="expression">Contoso-1.0</license></metadata></package>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNuspec(strings.NewReader(tt.doc))
			if !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("ParseNuspec() error = %v, want ErrInvalidManifest", err)
			}
		})
	}
}
