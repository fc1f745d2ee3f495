package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	reportUser     = "report"
	reportPassword = "report-secret"
)

var (
	imageBuildOnce sync.Once
	imageBuildErr  error
)

// FakeUpstream serves the identity provider and the GraphQL data API on the host.
type FakeUpstream struct {
	server   *httptest.Server
	Logins   int32
	Refresh  int32
	Queries  int32
	Response string
}

func newFakeUpstream(t *testing.T, response string) *FakeUpstream {
	t.Helper()
	u := &FakeUpstream{Response: response}

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/fa/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.PostForm.Get("grant_type") {
		case "password":
			atomic.AddInt32(&u.Logins, 1)
		case "refresh_token":
			atomic.AddInt32(&u.Refresh, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"container-token-1","refresh_token":"container-refresh","expires_in":300}`)
	})
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.Queries, 1)
		if r.Header.Get("Authorization") != "Bearer container-token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, u.Response)
	})

	// Bind all interfaces so the port-forwarding sidecar can reach it.
	ln, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	u.server = httptest.NewUnstartedServer(mux)
	u.server.Listener.Close()
	u.server.Listener = ln
	u.server.Start()
	t.Cleanup(u.server.Close)

	return u
}

// Port returns the host port the fake upstream listens on.
func (u *FakeUpstream) Port() int {
	_, port, _ := net.SplitHostPort(u.server.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// ServiceEnv runs the fa-report container against a FakeUpstream.
type ServiceEnv struct {
	t          *testing.T
	container  testcontainers.Container
	ctx        context.Context
	cancel     context.CancelFunc
	url        string
	resultsDir string
	Upstream   *FakeUpstream
}

// NewServiceEnv builds the image once per run and starts one container.
func NewServiceEnv(t *testing.T, upstreamResponse string) *ServiceEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	if err := buildImage(); err != nil {
		t.Fatalf("failed to build fa-report image: %v", err)
	}

	upstream := newFakeUpstream(t, upstreamResponse)
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	datetime := time.Now().Format("20060102-150405")
	resultsDir := filepath.Join(findProjectRoot(), "tests", "logs", datetime+"-"+t.Name())
	os.MkdirAll(resultsDir, 0755)

	base := fmt.Sprintf("http://%s:%d", testcontainers.HostInternal, upstream.Port())
	ctr, err := testcontainers.Run(ctx, "fa-report:test",
		testcontainers.WithExposedPorts("8080/tcp"),
		testcontainers.WithHostPortAccess(upstream.Port()),
		testcontainers.WithEnv(map[string]string{
			"FAREPORT_SERVER_HOST":    "0.0.0.0",
			"FAREPORT_SERVER_PORT":    "8080",
			"FAREPORT_AUTH_USERNAME":  reportUser,
			"FAREPORT_AUTH_PASSWORD":  reportPassword,
			"FAREPORT_FA_ISSUER_URL":  base + "/realms/fa/protocol/openid-connect",
			"FAREPORT_FA_GRAPHQL_URL": base + "/graphql",
			"FAREPORT_FA_USERNAME":    "svc",
			"FAREPORT_FA_PASSWORD":    "svc-pass",
			"FAREPORT_FA_TIMEOUT":     "5s",
			"FAREPORT_LOG_LEVEL":      "debug",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/api/health").WithPort("8080/tcp").WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		t.Fatalf("failed to start fa-report: %v", err)
	}

	mappedPort, err := ctr.MappedPort(ctx, "8080/tcp")
	if err != nil {
		ctr.Terminate(ctx)
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		ctr.Terminate(ctx)
		cancel()
		t.Fatalf("failed to get host: %v", err)
	}

	env := &ServiceEnv{
		t:          t,
		container:  ctr,
		ctx:        ctx,
		cancel:     cancel,
		url:        fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
		resultsDir: resultsDir,
		Upstream:   upstream,
	}
	t.Logf("fa-report environment ready: %s", env.url)
	return env
}

// buildImage builds the fa-report:test Docker image once per test run.
func buildImage() error {
	imageBuildOnce.Do(func() {
		req := testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				FromDockerfile: testcontainers.FromDockerfile{
					Context:    findProjectRoot(),
					Dockerfile: "docker/Dockerfile",
					Repo:       "fa-report",
					Tag:        "test",
					KeepImage:  true,
				},
			},
		}

		_, imageBuildErr = testcontainers.GenericContainer(context.Background(), req)
		if imageBuildErr != nil {
			// Image may have built successfully even if container creation failed
			if strings.Contains(imageBuildErr.Error(), "fa-report:test") {
				imageBuildErr = nil
			}
		}
	})
	return imageBuildErr
}

// URL returns the base URL of the running container.
func (e *ServiceEnv) URL() string {
	return e.url
}

// Get sends an authenticated GET request to the container.
func (e *ServiceEnv) Get(path string) (*http.Response, error) {
	return e.Do(http.MethodGet, path, nil, true)
}

// Do sends a request, adding basic credentials when auth is true.
func (e *ServiceEnv) Do(method, path string, body io.Reader, auth bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(e.ctx, method, e.url+path, body)
	if err != nil {
		return nil, err
	}
	if auth {
		req.SetBasicAuth(reportUser, reportPassword)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")
	}
	return http.DefaultClient.Do(req)
}

// SaveResult saves test output to the results directory.
func (e *ServiceEnv) SaveResult(name string, data []byte) {
	os.WriteFile(filepath.Join(e.resultsDir, name), data, 0644)
}

// Cleanup collects logs and terminates the container.
func (e *ServiceEnv) Cleanup() {
	if e == nil {
		return
	}

	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cleanupCancel()

	e.collectLogs(cleanupCtx)

	if e.container != nil {
		e.container.Terminate(cleanupCtx)
	}
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *ServiceEnv) collectLogs(ctx context.Context) {
	if e.container == nil {
		return
	}
	reader, err := e.container.Logs(ctx)
	if err != nil {
		return
	}
	defer reader.Close()
	logs, _ := io.ReadAll(reader)
	os.WriteFile(filepath.Join(e.resultsDir, "fa-report.log"), logs, 0644)
}

// readBody reads and returns the response body.
func readBody(t *testing.T, body io.ReadCloser) []byte {
	t.Helper()
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return data
}

func findProjectRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}
