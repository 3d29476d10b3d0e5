// Package cmd wires the engine to a mount backend from the command line.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/structfs/yamlfs/internal/engine"
	"github.com/structfs/yamlfs/internal/fusefs"
	"github.com/structfs/yamlfs/internal/nfsmount"
)

var (
	formatName string
	backend    string
	readOnly   bool
	debug      bool
)

func init() {
	rootCmd.Flags().StringVarP(&formatName, "format", "f", "raw", "default rendering format for suffix-less paths (raw|yaml|json)")
	rootCmd.Flags().StringVarP(&backend, "backend", "b", "fuse", "mount backend (fuse|nfs)")
	rootCmd.Flags().BoolVar(&readOnly, "readonly", false, "mount read-only; the source file is never written")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
}

var rootCmd = &cobra.Command{
	Use:   "yamlfs <source.yaml> <mountpoint>",
	Short: "Mount a YAML document as a filesystem",
	Long: `yamlfs exposes a YAML document as a navigable filesystem: nested
keys become directories, leaf values become files, and list elements
become numerically named entries. Appending .yaml, .yml, or .json to a
path renders the addressed node in that format; writes are type-inferred
and persisted back to the source file atomically.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourcePath, mountpoint := args[0], args[1]

		log, err := newLogger(debug)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		format, err := engine.ParseFormat(formatName)
		if err != nil {
			return err
		}

		eng, err := engine.New(engine.Config{
			SourcePath:    sourcePath,
			DefaultFormat: format,
			Logger:        log,
		})
		if err != nil {
			return err
		}

		if err := ensureMountpoint(mountpoint); err != nil {
			return err
		}

		switch backend {
		case "fuse":
			return mountFUSE(eng, mountpoint, log)
		case "nfs":
			return mountNFS(eng, mountpoint, log)
		}
		return fmt.Errorf("unknown backend %q", backend)
	},
}

// mountFUSE hands control to the cgofuse host until unmount.
func mountFUSE(eng *engine.Engine, mountpoint string, log *zap.Logger) error {
	host := fusefs.Host(eng, log)

	// uid/gid options ensure we own the mount (matters for fuse-t/NFS
	// bridges on macOS).
	opts := []string{
		"-o", fmt.Sprintf("uid=%d", os.Getuid()),
		"-o", fmt.Sprintf("gid=%d", os.Getgid()),
	}
	if readOnly {
		opts = append(opts, "-o", "ro")
	}

	log.Info("mounting",
		zap.String("mountpoint", mountpoint),
		zap.String("backend", "fuse"))
	if !host.Mount(mountpoint, opts) {
		return errors.New("mount failed")
	}
	return nil
}

// mountNFS serves the document over a loopback NFS server and mounts
// it via the system mount command, then blocks until interrupted.
func mountNFS(eng *engine.Engine, mountpoint string, log *zap.Logger) error {
	srv, err := nfsmount.NewServer(nfsmount.NewDocFS(eng, log), log)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	if err := nfsmount.Mount(srv.Port(), mountpoint, !readOnly); err != nil {
		return err
	}
	log.Info("mounted",
		zap.String("mountpoint", mountpoint),
		zap.String("backend", "nfs"),
		zap.Int("port", srv.Port()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("unmounting", zap.String("mountpoint", mountpoint))
	return nfsmount.Unmount(mountpoint)
}

// ensureMountpoint creates the mountpoint directory when missing.
func ensureMountpoint(mountpoint string) error {
	info, err := os.Stat(mountpoint)
	switch {
	case os.IsNotExist(err):
		return os.MkdirAll(mountpoint, 0o755)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("mountpoint %s is not a directory", mountpoint)
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
