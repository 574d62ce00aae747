package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })
}

func commandWithContext(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	return cmd
}

func sqliteConfig(dbPath, grpcAddr, cacheDriver string) string {
	return fmt.Sprintf(`http_addr: "127.0.0.1:0"
grpc_addr: %q
shutdown_timeout: 1s
store:
  driver: sqlite
  dsn: %q
  init_schema: true
cache:
  driver: %s
redis:
  addr: "127.0.0.1:1"
`, grpcAddr, "file:"+dbPath, cacheDriver)
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	t.Chdir(t.TempDir())
	writeConfig(t, sqliteConfig(filepath.Join(t.TempDir(), "catalog.db"), "127.0.0.1:0", "memory"))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, runServe(commandWithContext(ctx), nil))
}

func TestRunServe_RedisUnreachable(t *testing.T) {
	t.Chdir(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	writeConfig(t, sqliteConfig(dbPath, "127.0.0.1:0", "redis"))

	err := runServe(commandWithContext(context.Background()), nil)
	require.ErrorContains(t, err, "connect redis")

	// the store was released, so a second start can open it again
	writeConfig(t, sqliteConfig(dbPath, "127.0.0.1:0", "memory"))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, runServe(commandWithContext(ctx), nil))
}

func TestRunServe_GRPCPortInUse(t *testing.T) {
	t.Chdir(t.TempDir())
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()

	writeConfig(t, sqliteConfig(filepath.Join(t.TempDir(), "catalog.db"), lis.Addr().String(), "memory"))

	err = runServe(commandWithContext(context.Background()), nil)
	require.ErrorContains(t, err, "listen")
}
