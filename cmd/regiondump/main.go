// Command regiondump prints the index summary of region files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"

	"chunkvault/internal/region"
)

func main() {
	verbose := flag.Bool("v", false, "print the full summary of each file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-v] <region file or directory>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := logrus.New()
	failed := false
	for _, p := range expand(log, flag.Args()) {
		s, err := region.Inspect(p)
		if err != nil {
			log.WithError(err).Error("inspect failed")
			failed = true
			continue
		}
		if *verbose {
			pretty.Println(s)
			continue
		}
		state := "ok"
		if s.HeaderErr != "" {
			state = s.HeaderErr
		}
		fmt.Printf("%s: %d bytes, %d chunks, %d pending buckets, %d live / %d orphaned bytes (%s)\n",
			s.Path, s.Size, s.Chunks, s.Buckets, s.LiveBytes, s.OrphanBytes, state)
	}
	if failed {
		os.Exit(1)
	}
}

// expand replaces directories with the region files they contain.
func expand(log logrus.FieldLogger, args []string) []string {
	var out []string
	for _, a := range args {
		st, err := os.Stat(a)
		if err != nil || !st.IsDir() {
			out = append(out, a)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(a, "r_*"))
		if err != nil {
			log.WithError(err).Warn("bad directory pattern")
			continue
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out
}
