// Package version answers the -V/-VV/-VA CLI flags: short version string,
// verbose build metadata, and the full module/dependency list pulled from
// runtime/debug.BuildInfo, the Go-native standin for the teacher's
// reflection-based package-path inspection.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"time"
)

// Info describes one buildable binary's identity: what it is, under what
// license, and when/from-what it was built.
type Info struct {
	license License
	pkg     string
	desc    string
	date    time.Time
	build   string
	release string
	author  string
	prefix  string
}

// New builds an Info. date is parsed with time.RFC3339; an unparsable or
// empty date falls back to time.Now so a dev build still reports something
// sane instead of the zero time.
func New(license License, pkg, desc, date, build, release, author, prefix string) *Info {
	t, err := time.Parse(time.RFC3339, date)
	if err != nil {
		t = time.Now()
	}
	if pkg == "" || pkg == "noname" {
		pkg = "icapd"
	}
	return &Info{
		license: license,
		pkg:     pkg,
		desc:    desc,
		date:    t,
		build:   build,
		release: release,
		author:  author,
		prefix:  prefix,
	}
}

func (i *Info) GetPackage() string     { return i.pkg }
func (i *Info) GetDescription() string { return i.desc }
func (i *Info) GetTime() time.Time     { return i.date }
func (i *Info) GetDate() string        { return i.date.Format(time.RFC1123) }
func (i *Info) GetBuild() string       { return i.build }
func (i *Info) GetRelease() string     { return i.release }
func (i *Info) GetAuthor() string      { return i.author }
func (i *Info) GetPrefix() string      { return i.prefix }
func (i *Info) GetLicenseName() string { return i.license.String() }

// vcsInfo pulls the revision/dirty flag a `go build` stamped into the
// binary, when built from a VCS checkout.
func vcsInfo(bi *debug.BuildInfo) (revision string, dirty bool) {
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return
}

// PrintVersion writes version info to w at the requested verbosity:
//
//	0 (-V):  "pkg release"
//	1 (-VV): + description, author, license, build date/commit
//	2 (-VA): + Go runtime version, VCS revision/dirty, and every module
//	         dependency from runtime/debug.ReadBuildInfo
func (i *Info) PrintVersion(w io.Writer, level int) {
	fmt.Fprintf(w, "%s %s\n", i.pkg, i.release)
	if level < 1 {
		return
	}

	fmt.Fprintf(w, "  %s\n", i.desc)
	fmt.Fprintf(w, "  author:  %s\n", i.author)
	fmt.Fprintf(w, "  license: %s\n", i.GetLicenseName())
	fmt.Fprintf(w, "  built:   %s (%s)\n", i.GetDate(), i.build)
	if level < 2 {
		return
	}

	fmt.Fprintf(w, "  go:      %s\n", runtime.Version())

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if rev, dirty := vcsInfo(bi); rev != "" {
		state := "clean"
		if dirty {
			state = "dirty"
		}
		fmt.Fprintf(w, "  vcs:     %s (%s)\n", rev, state)
	}
	fmt.Fprintf(w, "  module:  %s\n", bi.Main.Path)
	if len(bi.Deps) > 0 {
		fmt.Fprintln(w, "  deps:")
		for _, d := range bi.Deps {
			fmt.Fprintf(w, "    %s %s\n", d.Path, d.Version)
		}
	}
}
