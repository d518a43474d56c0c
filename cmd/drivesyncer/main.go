// Command drivesyncer mounts a Google Drive account as a local FUSE
// filesystem.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"bazil.org/fuse"
	"github.com/golang/glog"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/OMGeeky/drive-syncer/cache"
	"github.com/OMGeeky/drive-syncer/config"
	"github.com/OMGeeky/drive-syncer/fusefs"
	"github.com/OMGeeky/drive-syncer/provider"
	"github.com/OMGeeky/drive-syncer/remote"
)

var configPath = flag.String("config", "", "path to config.json (defaults to the OS-specific location)")

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(); err != nil {
		glog.Exitf("drivesyncer: %v", err)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpClient, err := remote.NewOAuthHTTPClient(ctx, remote.OAuthConfig{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		TokenPath:    cfg.CredentialsPath,
	})
	if err != nil {
		return fmt.Errorf("building oauth client: %w", err)
	}
	service, err := gdrive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return fmt.Errorf("constructing drive service: %w", err)
	}
	rc := remote.NewDrive(service)

	store, err := cache.NewStore(cfg.CacheDir, cfg.PermaDir, cfg.CacheBudgetBytes)
	if err != nil {
		return fmt.Errorf("initializing cache store: %w", err)
	}
	if err := store.Purge(); err != nil {
		glog.Warningf("drivesyncer: purging ephemeral cache: %v", err)
	}

	uid, gid, err := fusefs.CurrentUidGid()
	if err != nil {
		return fmt.Errorf("resolving mounting user: %w", err)
	}

	p := provider.New(rc, store, provider.Config{
		DebounceWindow:   cfg.DebounceWindow.Duration(),
		ChangePollWindow: cfg.ChangePollWindow.Duration(),
		MetadataTTL:      cfg.MetadataTTL.Duration(),
		FileParentID:     cfg.FileParentID,
		Uid:              uid,
		Gid:              gid,
	})
	if err := p.Init(ctx); err != nil {
		return fmt.Errorf("initializing provider: %w", err)
	}

	conn, err := fuse.Mount(cfg.MountPoint,
		fuse.FSName("drivesyncer"),
		fuse.Subtype("drivesyncer"),
		fuse.VolumeName("Drive"),
	)
	if err != nil {
		return fmt.Errorf("mounting %s: %w", cfg.MountPoint, err)
	}
	defer conn.Close()

	adapter, err := fusefs.New(p, conn, cancel)
	if err != nil {
		return fmt.Errorf("constructing fuse adapter: %w", err)
	}

	go p.Run(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	go func() {
		<-sigs
		glog.Infof("drivesyncer: received interrupt, unmounting %s", cfg.MountPoint)
		cancel()
		fuse.Unmount(cfg.MountPoint)
	}()

	if err := adapter.Serve(); err != nil {
		return fmt.Errorf("serving fuse requests: %w", err)
	}

	<-conn.Ready
	if err := conn.MountError; err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	return store.Purge()
}

func loadConfig() (config.Config, error) {
	if *configPath != "" {
		return config.ReadFile(*configPath)
	}
	return config.Read()
}
