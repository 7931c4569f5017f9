// Command observe loads a map from the configured archives and streams
// composed frames to loopback websocket clients for external viewers.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"hexworld.dev/internal/assets/cache"
	"hexworld.dev/internal/assets/dat"
	"hexworld.dev/internal/assets/protodef"
	"hexworld.dev/internal/transport/observer"
	"hexworld.dev/internal/tuning"
	"hexworld.dev/internal/world"
)

func main() {
	var (
		listen     = flag.String("listen", "127.0.0.1:8787", "listen address")
		tuningPath = flag.String("tuning", "", "tuning.yaml path (optional)")
		mapName    = flag.String("map", "", "map archive entry or file path")
		fps        = flag.Int("fps", 10, "frames per second")
	)
	flag.Parse()

	if *mapName == "" {
		fmt.Fprintln(os.Stderr, "missing -map")
		os.Exit(2)
	}

	tun := tuning.Default()
	if *tuningPath != "" {
		var err error
		tun, err = tuning.Load(*tuningPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "tuning:", err)
			os.Exit(1)
		}
	}

	logger := log.New(os.Stderr, "observe ", log.LstdFlags)

	mounts, closeArchives, err := openMounts(tun)
	if err != nil {
		fmt.Fprintln(os.Stderr, "archives:", err)
		os.Exit(1)
	}
	defer closeArchives()

	sprites := cache.NewSpriteCache(mounts)
	if tun.SpriteCache != "" {
		if n, err := sprites.LoadSnapshot(tun.SpriteCache); err == nil {
			logger.Printf("sprite snapshot: %d sprites", n)
		}
	}

	var catalog *protodef.Catalog
	if tun.ProtoPath != "" {
		catalog, err = protodef.Load(tun.ProtoPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "protos:", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintln(os.Stderr, "missing proto_path in tuning")
		os.Exit(1)
	}

	raw, err := readMap(mounts, *mapName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "map:", err)
		os.Exit(1)
	}
	m, err := world.LoadMap(raw, catalog, sprites)
	if err != nil {
		fmt.Fprintln(os.Stderr, "map:", err)
		os.Exit(1)
	}
	m.World.AmbientLight = tun.AmbientLight
	logger.Printf("loaded %s: %d objects", m.Name, m.World.Objects().Len())

	sess := newSession(m, tun, *fps)
	go sess.run()

	srv := observer.NewServer(sess, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/observer/v1/bootstrap", srv.BootstrapHandler())
	mux.HandleFunc("/observer/v1/ws", srv.WSHandler())

	logger.Printf("listening on %s", *listen)
	if err := http.ListenAndServe(*listen, mux); err != nil {
		fmt.Fprintln(os.Stderr, "listen:", err)
		os.Exit(1)
	}
}

func openMounts(tun tuning.Tuning) (*cache.Mounts, func(), error) {
	var archives []*dat.Archive
	closeAll := func() {
		for _, a := range archives {
			_ = a.Close()
		}
	}
	for _, name := range tun.Archives {
		a, err := dat.Open(filepath.Join(tun.DataDir, name))
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		archives = append(archives, a)
	}
	return cache.NewMounts(archives...), closeAll, nil
}

// readMap tries the archives first, then the local filesystem.
func readMap(mounts *cache.Mounts, name string) ([]byte, error) {
	if raw, err := mounts.Read(name); err == nil {
		return raw, nil
	}
	return os.ReadFile(name)
}
