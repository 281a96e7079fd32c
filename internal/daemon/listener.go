// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/coverline/benefitcache/internal/errors"
)

const (
	unixScheme = "unix://"

	// Only the user that started the daemon may connect to its socket.
	// In linux, sockets visible to the FS honor the perms of the dir they are in.
	// To create a new socket we must have read/write/list(execute) permissions on
	// the directory it is being created in.
	socketDirPerms = 0o700
	// To connect to a socket it must have read/write permissions
	socketPerms = 0o600
)

// listener provides a Listener on addr, which is either a host:port or a
// unix:// socket path.
func listener(ctx context.Context, addr string) (net.Listener, error) {
	const op = "daemon.listener"
	if addr == "" {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing listen address")
	}
	if socketName, ok := strings.CutPrefix(addr, unixScheme); ok {
		return unixListener(ctx, socketName)
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("failed listening on %s", addr))
	}
	return l, nil
}

func unixListener(ctx context.Context, socketName string) (net.Listener, error) {
	const op = "daemon.unixListener"
	if socketName == "" {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing socket path")
	}
	if err := os.Remove(socketName); err != nil {
		// If the socket existed before and wasn't cleaned up delete it now.
		if !os.IsNotExist(err) {
			return nil, errors.Wrap(ctx, err, op)
		}
	}

	socketPath := filepath.Dir(socketName)
	if err := os.MkdirAll(socketPath, socketDirPerms); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("failed to create socket directory"))
	}

	l, err := net.Listen("unix", socketName)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("failed listening"))
	}
	if err := os.Chmod(socketName, socketPerms); err != nil {
		l.Close()
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("changing socket permissions"))
	}
	return l, nil
}

// listenAddress returns the address clients use to reach l: the socket
// filename with a 'unix://' prefix or the tcp host:port.
func listenAddress(l net.Listener) string {
	if l == nil {
		return ""
	}
	if l.Addr().Network() == "unix" {
		return fmt.Sprintf("%s%s", unixScheme, l.Addr().String())
	}
	return l.Addr().String()
}
