// Command inspect examines legacy asset containers: archive listings,
// sprite headers, map summaries, walkable routes and the persistent
// entry index.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hexworld.dev/internal/assets/cache"
	"hexworld.dev/internal/assets/dat"
	"hexworld.dev/internal/assets/frm"
	"hexworld.dev/internal/assets/index"
	"hexworld.dev/internal/assets/protodef"
	"hexworld.dev/internal/geom"
	"hexworld.dev/internal/tuning"
	"hexworld.dev/internal/world"
	"hexworld.dev/internal/world/pathfind"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "ls":
			lsCmd(os.Args[2:])
			return
		case "cat":
			catCmd(os.Args[2:])
			return
		case "frm":
			frmCmd(os.Args[2:])
			return
		case "map":
			mapCmd(os.Args[2:])
			return
		case "index":
			indexCmd(os.Args[2:])
			return
		case "path":
			pathCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: inspect {ls|cat|frm|map|index|path} ...")
	os.Exit(2)
}

func loadTuning(path string) tuning.Tuning {
	if path == "" {
		return tuning.Default()
	}
	tun, err := tuning.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tuning:", err)
		os.Exit(1)
	}
	return tun
}

func openArchives(paths []string) *cache.Mounts {
	mounts := cache.NewMounts()
	for _, p := range paths {
		a, err := dat.Open(p)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open:", err)
			os.Exit(1)
		}
		mounts.Mount(a)
	}
	return mounts
}

func lsCmd(args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	match := fs.String("match", "", "substring filter (optional)")
	long := fs.Bool("l", false, "show sizes and compression")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: inspect ls [-l] [-match s] archive.dat ...")
		os.Exit(2)
	}

	for _, path := range fs.Args() {
		a, err := dat.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open:", err)
			os.Exit(1)
		}
		names := a.List()
		sort.Strings(names)
		fmt.Printf("%s: v%d, %d entries\n", path, a.Version(), len(names))
		for _, name := range names {
			if *match != "" && !strings.Contains(name, dat.NormalizePath(*match)) {
				continue
			}
			if !*long {
				fmt.Println(name)
				continue
			}
			e, _ := a.Stat(name)
			c := "-"
			if e.Compressed {
				c = "z"
			}
			fmt.Printf("%10d %10d %s %s\n", e.Size, e.PackedSize, c, name)
		}
		_ = a.Close()
	}
}

func catCmd(args []string) {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	out := fs.String("out", "", "output file (default stdout)")
	_ = fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspect cat [-out f] archive.dat ... entry")
		os.Exit(2)
	}
	entry := fs.Arg(fs.NArg() - 1)
	mounts := openArchives(fs.Args()[:fs.NArg()-1])

	raw, err := mounts.Read(entry)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	if *out == "" {
		_, _ = os.Stdout.Write(raw)
		return
	}
	if err := os.WriteFile(*out, raw, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write:", err)
		os.Exit(1)
	}
}

func frmCmd(args []string) {
	fs := flag.NewFlagSet("frm", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: inspect frm [archive.dat ...] entry-or-file")
		os.Exit(2)
	}
	name := fs.Arg(fs.NArg() - 1)
	raw := readEntryOrFile(fs.Args()[:fs.NArg()-1], name)

	s, err := frm.Decode(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	fmt.Printf("%s: fps=%d action=%d frames/dir=%d\n", name, s.FPS, s.ActionFrame, s.FramesPerDirection)
	seen := map[*frm.FrameList]bool{}
	for d := 0; d < geom.DirCount; d++ {
		fl := s.Directions[d]
		shared := ""
		if seen[fl] {
			shared = " (shared)"
		}
		seen[fl] = true
		fmt.Printf("  %s: center=%d,%d frames=%d%s\n",
			geom.Direction(d), fl.Center.X, fl.Center.Y, len(fl.Frames), shared)
		if shared != "" {
			continue
		}
		for i, f := range fl.Frames {
			fmt.Printf("    [%d] %dx%d shift=%d,%d\n", i, f.Width, f.Height, f.Shift.X, f.Shift.Y)
		}
	}
}

func mapCmd(args []string) {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	protoPath := fs.String("protos", "", "prototype catalog path")
	_ = fs.Parse(args)

	if fs.NArg() < 1 || *protoPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect map -protos catalog.json [archive.dat ...] entry-or-file")
		os.Exit(2)
	}
	catalog, err := protodef.Load(*protoPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "protos:", err)
		os.Exit(1)
	}

	name := fs.Arg(fs.NArg() - 1)
	raw := readEntryOrFile(fs.Args()[:fs.NArg()-1], name)

	m, err := world.LoadMap(raw, catalog, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}

	fmt.Printf("%s: version=%d id=%d savegame=%t\n", m.Name, m.Version, m.ID, m.Savegame)
	fmt.Printf("entrance: %d,%d elevation=%d facing=%s\n",
		m.Entrance.Point.X, m.Entrance.Point.Y, m.Entrance.Elevation, m.EntranceDirection)
	fmt.Printf("map vars: %d\n", len(m.MapVars))
	for e := 0; e < world.ElevationCount; e++ {
		if !m.World.HasElevation(e) {
			continue
		}
		kinds := map[protodef.Kind]int{}
		m.World.Objects().Each(func(_ world.Handle, obj *world.Object) {
			if obj.HasPos && obj.Pos.Elevation == e {
				kinds[obj.Kind()]++
			}
		})
		fmt.Printf("elevation %d:", e)
		for k := protodef.KindItem; k <= protodef.KindMisc; k++ {
			if kinds[k] > 0 {
				fmt.Printf(" %s=%d", k, kinds[k])
			}
		}
		fmt.Println()
	}
	fmt.Printf("objects: %d total\n", m.World.Objects().Len())
}

func indexCmd(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	dbPath := fs.String("db", "", "index database path (default from tuning)")
	tuningPath := fs.String("tuning", "", "tuning.yaml path (optional)")
	glob := fs.String("glob", "", "list entries matching a LIKE pattern")
	lookup := fs.String("lookup", "", "resolve one entry name")
	_ = fs.Parse(args)

	if *dbPath == "" {
		*dbPath = loadTuning(*tuningPath).IndexPath
	}
	db, err := index.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	defer db.Close()
	ctx := context.Background()

	for _, path := range fs.Args() {
		a, err := dat.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open:", err)
			os.Exit(1)
		}
		n, err := db.IndexArchive(ctx, a)
		_ = a.Close()
		if err != nil {
			fmt.Fprintln(os.Stderr, "index:", err)
			os.Exit(1)
		}
		if n == 0 {
			fmt.Printf("%s: unchanged\n", filepath.Base(path))
		} else {
			fmt.Printf("%s: %d entries\n", filepath.Base(path), n)
		}
	}

	if *lookup != "" {
		row, err := db.Lookup(ctx, *lookup)
		if err != nil {
			fmt.Fprintln(os.Stderr, "lookup:", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s size=%d packed=%d offset=%d compressed=%t\n",
			row.Entry.Name, row.ArchivePath, row.Entry.Size, row.Entry.PackedSize,
			row.Entry.Offset, row.Entry.Compressed)
	}
	if *glob != "" {
		names, err := db.Glob(ctx, *glob)
		if err != nil {
			fmt.Fprintln(os.Stderr, "glob:", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	}

	archives, entries, err := db.Stats(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stats:", err)
		os.Exit(1)
	}
	fmt.Printf("index: %d archives, %d entries\n", archives, entries)
}

func pathCmd(args []string) {
	fs := flag.NewFlagSet("path", flag.ExitOnError)
	protoPath := fs.String("protos", "", "prototype catalog path")
	tuningPath := fs.String("tuning", "", "tuning.yaml path (optional)")
	elevation := fs.Int("elevation", 0, "map elevation")
	_ = fs.Parse(args)

	if fs.NArg() < 3 || *protoPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect path -protos catalog.json [archive.dat ...] entry-or-file fromX,fromY toX,toY")
		os.Exit(2)
	}
	catalog, err := protodef.Load(*protoPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "protos:", err)
		os.Exit(1)
	}
	from := parseTile(fs.Arg(fs.NArg() - 2))
	to := parseTile(fs.Arg(fs.NArg() - 1))
	raw := readEntryOrFile(fs.Args()[:fs.NArg()-3], fs.Arg(fs.NArg()-3))

	m, err := world.LoadMap(raw, catalog, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	if !m.World.HasElevation(*elevation) {
		fmt.Fprintln(os.Stderr, "no such elevation:", *elevation)
		os.Exit(1)
	}

	tun := loadTuning(*tuningPath)
	finder := pathfind.New(m.World.HexGrid(), tun.Pathfind.MaxDepth)
	finder.TurnPenalty = tun.Pathfind.TurnPenalty
	route, err := finder.Find(from, to, tun.Pathfind.Smooth,
		func(p geom.Point) (int, bool) {
			return 0, m.World.IsPassable(p.Elevated(*elevation))
		})
	if err != nil {
		fmt.Fprintln(os.Stderr, "path:", err)
		os.Exit(1)
	}
	for _, p := range route {
		fmt.Printf("%d,%d\n", p.X, p.Y)
	}
	fmt.Printf("%d steps\n", len(route))
}

func parseTile(s string) geom.Point {
	var p geom.Point
	if _, err := fmt.Sscanf(s, "%d,%d", &p.X, &p.Y); err != nil {
		fmt.Fprintln(os.Stderr, "bad tile:", s)
		os.Exit(2)
	}
	return p
}

// readEntryOrFile resolves a name through the given archives, falling
// back to the local filesystem when no archive carries it.
func readEntryOrFile(archives []string, name string) []byte {
	if len(archives) > 0 {
		mounts := openArchives(archives)
		if raw, err := mounts.Read(name); err == nil {
			return raw
		}
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	return raw
}
