package integration

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/doodlesbykumbi/tenant-authz/pkg/config"
	"github.com/doodlesbykumbi/tenant-authz/pkg/db"
	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/endpoints"
)

// portCounter is used to allocate unique ports for each test server
var portCounter int32 = 19000

// ServerInstance represents a running server for the suite
type ServerInstance struct {
	Server        *server.Server
	ServerURL     string
	Port          int
	listener      net.Listener
	serverProcess *exec.Cmd
	cancel        context.CancelFunc
}

// StartServer starts the binary when binaryPath is set, otherwise an
// in-process server, against dbURL.
func StartServer(binaryPath, dbURL string) (*ServerInstance, error) {
	if binaryPath == "" {
		return startInlineServerInstance(dbURL)
	}
	return startBinaryServerInstance(binaryPath, dbURL)
}

func serverConfig(dbURL string) *config.Config {
	return &config.Config{
		DatabaseURL:     dbURL,
		SigningSecret:   signingSecret,
		TenantHeader:    config.DefaultTenantHeader,
		EmailClaim:      identity.ClaimEmail,
		RoleClaim:       identity.ClaimRole,
		GlobalAdminRole: config.DefaultGlobalAdminRole,
		StoreTimeout:    config.DefaultStoreTimeout,
	}
}

// startInlineServerInstance starts an in-process server
func startInlineServerInstance(dbURL string) (*ServerInstance, error) {
	port := int(atomic.AddInt32(&portCounter, 1))

	conn, err := db.Connect(db.Config{URL: dbURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := server.NewServer(serverConfig(dbURL), conn, "127.0.0.1", fmt.Sprintf("%d", port))
	endpoints.RegisterAll(s)

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener on port %d: %w", port, err)
	}

	instance := &ServerInstance{
		Server:    s,
		ServerURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:      port,
		listener:  listener,
	}

	go func() {
		_ = s.StartWithListener(listener)
	}()

	if err := waitForServer(instance.ServerURL, 10*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return instance, nil
}

// startBinaryServerInstance starts a server using the tenantctl binary
func startBinaryServerInstance(binaryPath, dbURL string) (*ServerInstance, error) {
	port := int(atomic.AddInt32(&portCounter, 1))
	portStr := fmt.Sprintf("%d", port)

	ctx, cancel := context.WithCancel(context.Background())

	// Use --no-migrate since the suite already ran migrations
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", portStr)
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+dbURL,
		"TENANT_AUTHZ_SIGNING_SECRET="+signingSecret,
		// keep a host config file out of the run
		"TENANT_AUTHZ_CONFIG_PATH="+os.TempDir(),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start binary: %w", err)
	}

	instance := &ServerInstance{
		ServerURL:     fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:          port,
		cancel:        cancel,
		serverProcess: cmd,
	}

	if err := waitForServer(instance.ServerURL, 30*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return instance, nil
}

// Stop shuts down the server instance
func (si *ServerInstance) Stop() {
	if si.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = si.Server.Shutdown(ctx)
		cancel()
	}
	if si.cancel != nil {
		si.cancel()
	}
	if si.listener != nil {
		_ = si.listener.Close()
	}
	if si.serverProcess != nil && si.serverProcess.Process != nil {
		_ = si.serverProcess.Process.Kill()
		_ = si.serverProcess.Wait()
	}
}

// waitForServer polls the readiness endpoint until it answers or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(strings.TrimSuffix(serverURL, "/") + "/ready")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}
