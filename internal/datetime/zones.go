package datetime

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const defaultZoneDir = "/usr/share/zoneinfo"

// LoadZone resolves an IANA timezone name.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTimezone, name)
	}
	return loc, nil
}

// Zones lists the timezone names found in the zoneinfo database, sorted.
// $ZONEINFO is used when it names a directory.
func Zones() ([]string, error) {
	dir := defaultZoneDir
	if env := os.Getenv("ZONEINFO"); env != "" {
		if st, err := os.Stat(env); err == nil && st.IsDir() {
			dir = env
		}
	}
	return zonesIn(os.DirFS(dir))
}

func zonesIn(fsys fs.FS) ([]string, error) {
	var names []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case "posix", "right":
				return fs.SkipDir
			}
			return nil
		}
		if !isZoneName(path) {
			return nil
		}
		ok, err := isTZif(fsys, path)
		if err != nil {
			return err
		}
		if ok {
			names = append(names, filepath.ToSlash(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func isZoneName(path string) bool {
	base := filepath.Base(path)
	if base == "localtime" || base == "posixrules" || base == "Factory" {
		return false
	}
	return !strings.Contains(base, ".")
}

func isTZif(fsys fs.FS, path string) (bool, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	magic := make([]byte, 4)
	n, _ := f.Read(magic)
	return bytes.Equal(magic[:n], []byte("TZif")), nil
}
