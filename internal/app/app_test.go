package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/inmemorystore"
	"github.com/vk/taskgrid/internal/taskgraph"
	"github.com/vk/taskgrid/internal/taskstore"
	"github.com/vk/taskgrid/modules/noop"
	"github.com/vk/taskgrid/modules/runcommands"
)

// staticLoader returns a workspace built in code.
type staticLoader struct {
	ws  *config.Workspace
	err error
}

func (l *staticLoader) Load(_ context.Context, root string) (*config.Workspace, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.ws.Root = root
	return l.ws, nil
}

func appLibWorkspace(libCommand string) *config.Workspace {
	return &config.Workspace{
		TargetDefaults: map[string]*config.TargetConfiguration{
			"build": {DependsOn: []config.DependencyDeclaration{{Target: "build", Dependencies: true}}},
		},
		Projects: []*config.ProjectConfiguration{
			{
				Name:         "app",
				Root:         ".",
				Dependencies: []config.ProjectDependency{{Target: "lib", Type: config.DependencyStatic}},
				Targets:      map[string]*config.TargetConfiguration{"build": {Executor: noop.Name}},
			},
			{
				Name:    "lib",
				Root:    ".",
				Targets: map[string]*config.TargetConfiguration{"build": {Command: libCommand}},
			},
		},
	}
}

func TestApp_Run_Success(t *testing.T) {
	// --- Arrange ---
	cfg := &Config{WorkspaceRoot: t.TempDir(), Requests: []string{"app:build"}}
	a, logs := SetupAppTest(t, cfg, &staticLoader{ws: appLibWorkspace("echo lib built")}, &noop.Module{}, &runcommands.Module{})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	out := logs.String()
	assert.Contains(t, out, "Successfully ran 2 task(s)")
	assert.Contains(t, out, "task_id=lib:build")
}

func TestApp_Run_FailureReturnsErrRunFailed(t *testing.T) {
	cfg := &Config{WorkspaceRoot: t.TempDir(), Requests: []string{"app:build"}}
	a, logs := SetupAppTest(t, cfg, &staticLoader{ws: appLibWorkspace("exit 1")}, &noop.Module{}, &runcommands.Module{})

	err := a.Run(context.Background())

	assert.ErrorIs(t, err, ErrRunFailed)
	assert.Contains(t, logs.String(), "lib:build failed; app:build was skipped because of lib:build")
}

func TestApp_Run_PrintsGraph(t *testing.T) {
	cfg := &Config{WorkspaceRoot: t.TempDir(), Target: "build", GraphFormat: "yaml"}
	a, logs := SetupAppTest(t, cfg, &staticLoader{ws: appLibWorkspace("exit 1")}, &noop.Module{}, &runcommands.Module{})

	require.NoError(t, a.Run(context.Background()))

	out := logs.String()
	assert.Contains(t, out, "roots:")
	assert.Contains(t, out, "dependencies:")
	assert.NotContains(t, out, "Starting task.")
}

func TestApp_Run_LoadError(t *testing.T) {
	cfg := &Config{WorkspaceRoot: t.TempDir(), Requests: []string{"app:build"}}
	a, _ := SetupAppTest(t, cfg, &staticLoader{err: errors.New("boom")}, &noop.Module{})

	assert.ErrorContains(t, a.Run(context.Background()), "failed to load workspace: boom")
}

func TestApp_Run_UnknownTarget(t *testing.T) {
	cfg := &Config{WorkspaceRoot: t.TempDir(), Requests: []string{"app:deploy"}}
	a, _ := SetupAppTest(t, cfg, &staticLoader{ws: appLibWorkspace("true")}, &noop.Module{}, &runcommands.Module{})

	assert.ErrorContains(t, a.Run(context.Background()), "failed to build task graph")
}

func TestApp_Parallel(t *testing.T) {
	a := &App{config: &Config{}}
	assert.Equal(t, DefaultParallel, a.parallel(0))
	assert.Equal(t, 5, a.parallel(5))

	a.config.Parallel = 2
	assert.Equal(t, 2, a.parallel(5))
}

func TestApp_HealthEndpoints(t *testing.T) {
	// --- Arrange ---
	a, _ := SetupAppTest(t, &Config{}, &staticLoader{}, &noop.Module{})
	srv := httptest.NewServer(a.handler())
	defer srv.Close()

	// --- Act & Assert ---
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/tasks")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	store := inmemorystore.New()
	require.NoError(t, store.SetStatus(context.Background(), "lib:build", taskstore.StatusRunning))
	a.setStore(store)

	rec := httptest.NewRecorder()
	a.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lib:build":{"status":"running"}}`, rec.Body.String())
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "requests", cfg: Config{WorkspaceRoot: ".", Requests: []string{"app:build"}}},
		{name: "target", cfg: Config{WorkspaceRoot: ".", Target: "build", Projects: []string{"app"}}},
		{name: "missing root", cfg: Config{Requests: []string{"app:build"}}, wantErr: "WorkspaceRoot"},
		{name: "nothing to run", cfg: Config{WorkspaceRoot: "."}, wantErr: "nothing to run"},
		{name: "both", cfg: Config{WorkspaceRoot: ".", Requests: []string{"a:b"}, Target: "b"}, wantErr: "mutually exclusive"},
		{name: "projects without target", cfg: Config{WorkspaceRoot: ".", Requests: []string{"a:b"}, Projects: []string{"a"}}, wantErr: "--projects requires --target"},
		{name: "bad id", cfg: Config{WorkspaceRoot: ".", Requests: []string{"app"}}, wantErr: "app"},
		{name: "bad graph format", cfg: Config{WorkspaceRoot: ".", Target: "b", GraphFormat: "dot"}, wantErr: "unknown graph format"},
		{name: "bad log level", cfg: Config{WorkspaceRoot: ".", Target: "b", LogLevel: "loud"}, wantErr: "invalid log level"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestConfig_ApplyEnvDefaults(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("TASKGRID_PARALLEL=7\nTASKGRID_LOG_LEVEL=warn\n"), 0o644))
	t.Setenv(EnvLogLevel, "debug")

	// --- Act ---
	cfg := &Config{WorkspaceRoot: root}
	require.NoError(t, cfg.ApplyEnvDefaults())

	// --- Assert ---
	assert.Equal(t, 7, cfg.Parallel)
	assert.Equal(t, "debug", cfg.LogLevel, "the process environment wins over .env")

	explicit := &Config{WorkspaceRoot: root, Parallel: 1}
	require.NoError(t, explicit.ApplyEnvDefaults())
	assert.Equal(t, 1, explicit.Parallel, "flags win over the environment")
}

func TestConfig_ApplyEnvDefaults_Invalid(t *testing.T) {
	t.Setenv(EnvParallel, "many")

	err := (&Config{WorkspaceRoot: t.TempDir()}).ApplyEnvDefaults()

	assert.ErrorContains(t, err, EnvParallel)
}

func TestConfig_TaskRequests(t *testing.T) {
	cfg := &Config{Requests: []string{"app:build", "lib:test:ci"}, Configuration: "production"}

	reqs, err := cfg.TaskRequests()

	require.NoError(t, err)
	assert.Equal(t, []taskgraph.Request{
		{Project: "app", Target: "build", Configuration: "production"},
		{Project: "lib", Target: "test", Configuration: "ci"},
	}, reqs)
}

func TestApp_Run_LogLevelFromEnvironment(t *testing.T) {
	testCases := []struct {
		name      string
		env       string
		wantDebug bool
	}{
		{name: "debug from environment", env: "debug", wantDebug: true},
		{name: "default level", env: "", wantDebug: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			t.Setenv(EnvLogLevel, tc.env)
			out := &SafeBuffer{}
			cfg := &Config{WorkspaceRoot: t.TempDir(), Requests: []string{"app:build"}, LogFormat: "text"}
			a := NewApp(out, cfg, &staticLoader{ws: appLibWorkspace("true")}, &noop.Module{}, &runcommands.Module{})

			// --- Act ---
			err := a.Run(context.Background())

			// --- Assert ---
			require.NoError(t, err)
			if tc.wantDebug {
				assert.Contains(t, out.String(), "level=DEBUG")
			} else {
				assert.NotContains(t, out.String(), "level=DEBUG")
			}
		})
	}
}

func TestApp_CloseHealthcheckServer_DrainsAfterCancel(t *testing.T) {
	// --- Arrange ---
	a, _ := SetupAppTest(t, &Config{}, &staticLoader{}, &noop.Module{})

	entered := make(chan struct{})
	release := make(chan struct{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	a.httpServer = &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			close(entered)
			<-release
			w.WriteHeader(http.StatusOK)
		}),
		ReadHeaderTimeout: time.Second,
	}
	go func() { _ = a.httpServer.Serve(ln) }()

	respCh := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			respCh <- 0
			return
		}
		resp.Body.Close()
		respCh <- resp.StatusCode
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.ctx = ctx
	time.AfterFunc(50*time.Millisecond, func() { close(release) })

	// --- Act ---
	err = a.closeHealthcheckServer()

	// --- Assert ---
	require.NoError(t, err, "an interrupted run still drains in-flight requests")
	assert.Equal(t, http.StatusOK, <-respCh)
}
