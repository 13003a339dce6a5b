// Package version reports how the ppusim binary was built.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"text/tabwriter"

	"ppusim/internal/ppu"
)

// Set with -ldflags "-X ppusim/internal/version.Version=..." at release time.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info describes the running binary.
type Info struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit,omitempty"`
	Date      string   `json:"date,omitempty"`
	Modified  bool     `json:"modified,omitempty"`
	GoVersion string   `json:"go_version"`
	Platform  string   `json:"platform"`
	CGO       bool     `json:"cgo"`
	Tags      []string `json:"tags,omitempty"`
	Revisions int      `json:"revisions"`
}

// Get collects build information, filling commit and date from the VCS
// stamp when the linker did not set them.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Revisions: int(ppu.RevisionMax),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		case "CGO_ENABLED":
			info.CGO = s.Value == "1"
		case "-tags":
			info.Tags = strings.Split(s.Value, ",")
		}
	}
	return info
}

// ShortCommit returns the first seven characters of the commit, if known.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

// Line is the one-line form used by --version.
func (i Info) Line() string {
	var b strings.Builder
	b.WriteString(i.Version)
	if c := i.ShortCommit(); c != "" {
		b.WriteString(" (" + c)
		if i.Modified {
			b.WriteString(", modified")
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, " %s %s", i.GoVersion, i.Platform)
	return b.String()
}

// Write prints every field as an aligned table.
func (i Info) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "Version:\t%s\n", i.Version)
	fmt.Fprintf(tw, "Commit:\t%s\n", orUnknown(i.Commit))
	fmt.Fprintf(tw, "Date:\t%s\n", orUnknown(i.Date))
	fmt.Fprintf(tw, "Go:\t%s\n", i.GoVersion)
	fmt.Fprintf(tw, "Platform:\t%s\n", i.Platform)
	fmt.Fprintf(tw, "CGO:\t%t\n", i.CGO)
	fmt.Fprintf(tw, "Tags:\t%s\n", orUnknown(strings.Join(i.Tags, ",")))
	fmt.Fprintf(tw, "Revisions:\t%d\n", i.Revisions)
	return tw.Flush()
}

func orUnknown(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
