package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/crewtools/crewclock/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given no file and no environment", t, func() {
		os.Unsetenv("CREWCLOCK_CONFIG")

		Convey("Load returns the defaults", func() {
			cfg, err := config.Load(ctx)
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":8089")
			So(cfg.DBPath, ShouldEqual, "crewclock.db")
			So(cfg.MirrorPath, ShouldBeBlank)
			So(cfg.SourceTag, ShouldEqual, "crew-clock")
			So(cfg.QueueSize, ShouldEqual, 4096)
			So(cfg.WorkerCount, ShouldEqual, 2)
			So(cfg.MaxRecentLimit, ShouldEqual, 200)
		})
	})

	Convey("Given a YAML config file", t, func() {
		path := filepath.Join(t.TempDir(), "crewclock.yaml")
		body := []byte("addr: \":7000\"\ndb_path: /var/lib/crewclock/punches.db\ntimezone: America/Chicago\nworker_count: 4\n")
		So(os.WriteFile(path, body, 0o600), ShouldBeNil)
		t.Setenv("CREWCLOCK_CONFIG", path)

		Convey("File values override defaults", func() {
			cfg, err := config.Load(ctx)
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7000")
			So(cfg.DBPath, ShouldEqual, "/var/lib/crewclock/punches.db")
			So(cfg.Timezone, ShouldEqual, "America/Chicago")
			So(cfg.WorkerCount, ShouldEqual, 4)
			// Untouched keys keep their defaults.
			So(cfg.QueueSize, ShouldEqual, 4096)
		})

		Convey("Environment overrides the file", func() {
			t.Setenv("CREWCLOCK_ADDR", ":7111")
			t.Setenv("CREWCLOCK_SOURCE_TAG", "kiosk-2")
			cfg, err := config.Load(ctx)
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7111")
			So(cfg.SourceTag, ShouldEqual, "kiosk-2")
			So(cfg.DBPath, ShouldEqual, "/var/lib/crewclock/punches.db")
		})
	})

	Convey("Given an invalid configuration", t, func() {
		Convey("A missing file errors as a load failure", func() {
			t.Setenv("CREWCLOCK_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
			_, err := config.Load(ctx)
			So(err, ShouldWrap, config.ErrLoadConfig)
		})

		Convey("An empty db_path fails validation", func() {
			os.Unsetenv("CREWCLOCK_CONFIG")
			t.Setenv("CREWCLOCK_DB_PATH", " ")
			_, err := config.Load(ctx)
			// Whitespace still counts as set; only truly empty fails.
			So(err, ShouldBeNil)

			t.Setenv("CREWCLOCK_QUEUE_SIZE", "0")
			_, err = config.Load(ctx)
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
