package nfsmount

import (
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	nfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"
	"go.uber.org/zap"
)

// handleCacheSize bounds the NFS file-handle cache. The document tree
// is small; 4096 handles is generous.
const handleCacheSize = 4096

// Server runs the loopback NFS endpoint the system mount command
// attaches to. It exports a single root backed by the document.
type Server struct {
	listener net.Listener
	port     int
	log      *zap.Logger
}

// NewServer starts serving fs on an ephemeral localhost port.
func NewServer(fs billy.Filesystem, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return nil, fmt.Errorf("nfs listen: %w", err)
	}

	s := &Server{
		listener: listener,
		port:     listener.Addr().(*net.TCPAddr).Port,
		log:      log,
	}

	handler := nfshelper.NewNullAuthHandler(fs)
	go s.serve(nfshelper.NewCachingHandler(handler, handleCacheSize))

	log.Info("nfs server listening", zap.Int("port", s.port))
	return s, nil
}

// serve blocks until the listener closes. Closing the listener during
// shutdown is the expected exit; anything else leaves the mount hung,
// so it is logged loudly.
func (s *Server) serve(handler nfs.Handler) {
	err := nfs.Serve(s.listener, handler)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Error("nfs server stopped", zap.Error(err))
	}
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Close stops the server by closing the listener.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Mount attaches the loopback server at mountpoint via the platform
// mount command. writable selects rw/ro access; a read-only mount
// still reflects external document edits but rejects writes at the
// VFS layer. Requires sudo.
func Mount(port int, mountpoint string, writable bool) error {
	access := "ro"
	if writable {
		access = "rw"
	}

	opts := []string{
		access,
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("mountport=%d", port),
		"vers=3",
		"tcp",
		"noresvport",
	}
	switch runtime.GOOS {
	case "darwin":
		opts = append(opts, "locallocks")
	case "linux":
		opts = append(opts, "local_lock=all", "nolock")
	default:
		return fmt.Errorf("no nfs mount support on %s", runtime.GOOS)
	}

	cmd := exec.Command("sudo", "mount", "-t", "nfs",
		"-o", strings.Join(opts, ","),
		"localhost:/", mountpoint)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mount %s: %w\n%s", mountpoint, err, out)
	}
	return nil
}

// Unmount detaches the mountpoint. On macOS diskutil is tried first
// since it handles user NFS mounts without sudo.
func Unmount(mountpoint string) error {
	var attempts [][]string
	if runtime.GOOS == "darwin" {
		attempts = append(attempts, []string{"diskutil", "unmount", mountpoint})
	}
	attempts = append(attempts, []string{"sudo", "umount", mountpoint})

	var lastErr error
	for _, argv := range attempts {
		out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("unmount %s: %w\n%s", mountpoint, err, out)
	}
	return lastErr
}
