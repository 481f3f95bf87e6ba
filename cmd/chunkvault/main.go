package main

import (
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xlab/closer"

	"chunkvault/internal/backup"
	"chunkvault/internal/config"
	"chunkvault/internal/game"
)

func main() {
	var (
		configPath  = flag.String("config", "chunkvault.yaml", "path to a .yaml or .toml config file")
		writeConfig = flag.Bool("write-config", false, "write the default config to -config if it does not exist")
		ticks       = flag.Int64("ticks", 0, "stop after this many ticks (0 runs until interrupted)")
		status      = flag.Duration("status", 10*time.Second, "interval between status lines (0 disables)")
		backupPath  = flag.String("backup", "", "archive the region directory here on exit")
		restorePath = flag.String("restore", "", "restore the region directory from this archive and exit")
	)
	flag.Parse()

	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{ForceColors: true, FullTimestamp: true}

	if *writeConfig {
		if err := config.WriteDefault(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	path := *configPath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warnf("config %s not found, using defaults", path)
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	level, _ := logrus.ParseLevel(cfg.Log.Level)
	log.Level = level

	if *restorePath != "" {
		n, err := backup.RestoreFile(*restorePath, cfg.World.RegionsDir())
		if err != nil {
			log.Fatal(err)
		}
		log.Infof("restored %d region files into %s", n, cfg.World.RegionsDir())
		return
	}

	session, err := game.NewSession(cfg, log)
	if err != nil {
		log.Fatal(err)
	}
	app := game.NewApp(session, cfg.Tick.Rate, cfg.Tick.SlowTick(), log)

	closer.Bind(func() {
		app.Stop()
		<-app.Done()
		if err := session.Close(); err != nil {
			log.WithError(err).Error("closing world")
		}
		if *backupPath != "" {
			n, err := backup.ArchiveFile(cfg.World.RegionsDir(), *backupPath)
			if err != nil {
				log.WithError(err).Error("backup failed")
				return
			}
			log.Infof("archived %d region files to %s", n, *backupPath)
		}
	})

	go app.Run(*ticks)
	if *status > 0 {
		go logStatus(log, session, *status, app.Done())
	}
	go func() {
		<-app.Done()
		closer.Close()
	}()
	closer.Hold()
}

func logStatus(log logrus.FieldLogger, s *game.Session, every time.Duration, done <-chan struct{}) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
		}
		st := s.Chunks.Stats()
		meshes, quads := s.Mesher.Totals()
		log.WithFields(logrus.Fields{
			"resident":        st.Resident,
			"pending_buckets": st.PendingBuckets,
			"loaded":          st.Loaded,
			"generated":       st.Generated,
			"unloaded":        st.Unloaded,
			"saved":           st.Saved,
			"decode_failures": st.DecodeFailures,
			"meta_flushes":    st.MetaFlushes,
			"meshes":          meshes,
			"quads":           quads,
		}).Info("status")
	}
}
