package localsession

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/taskgraph"
	"github.com/vk/taskgrid/internal/taskstore"
	"github.com/vk/taskgrid/modules/noop"
)

func newWorkspace(t *testing.T, executor string) *config.Workspace {
	t.Helper()
	return &config.Workspace{
		Root: t.TempDir(),
		TargetDefaults: map[string]*config.TargetConfiguration{
			"build": {DependsOn: []config.DependencyDeclaration{{Target: "build", Dependencies: true}}},
		},
		Projects: []*config.ProjectConfiguration{
			{
				Name:         "app",
				Root:         "apps/app",
				Dependencies: []config.ProjectDependency{{Target: "lib", Type: config.DependencyStatic}},
				Targets:      map[string]*config.TargetConfiguration{"build": {Executor: executor}},
			},
			{
				Name:    "lib",
				Root:    "libs/lib",
				Targets: map[string]*config.TargetConfiguration{"build": {Executor: executor}},
			},
		},
	}
}

func TestSession_PlanAndExecute(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	reg := registry.New()
	reg.RegisterModules(&noop.Module{})
	s, err := (&SessionFactory{}).NewSession(ctx, newWorkspace(t, noop.Name), reg)
	require.NoError(t, err)
	defer s.Close(ctx)

	_, err = uuid.Parse(s.ID())
	require.NoError(t, err, "run ids are uuids")

	// --- Act ---
	g, err := s.Plan(ctx, []taskgraph.Request{{Project: "app", Target: "build"}}, nil)
	require.NoError(t, err)
	run, err := s.Execute(ctx, g, 2)
	require.NoError(t, err)
	summary := run.Wait()

	// --- Assert ---
	assert.Equal(t, []string{"app:build", "lib:build"}, g.Order())
	assert.True(t, summary.Success)
	assert.Equal(t, []string{"lib:build", "app:build"}, summary.StartOrder)

	st, err := s.Store().GetStatus(ctx, "app:build")
	require.NoError(t, err)
	assert.Equal(t, taskstore.StatusSucceeded, st)
}

func TestSession_Requests(t *testing.T) {
	reg := registry.New()
	s, err := (&SessionFactory{}).NewSession(context.Background(), newWorkspace(t, noop.Name), reg)
	require.NoError(t, err)

	assert.Equal(t, []taskgraph.Request{
		{Project: "app", Target: "build"},
		{Project: "lib", Target: "build"},
	}, s.Requests("build", ""))
	assert.Equal(t, []taskgraph.Request{{Project: "lib", Target: "build", Configuration: "prod"}}, s.Requests("build", "prod", "lib"))
}

func TestSession_ExecuteRejectsUnknownExecutors(t *testing.T) {
	ctx := context.Background()
	s, err := (&SessionFactory{}).NewSession(ctx, newWorkspace(t, "webpack"), registry.New())
	require.NoError(t, err)
	g, err := s.Plan(ctx, []taskgraph.Request{{Project: "lib", Target: "build"}}, nil)
	require.NoError(t, err)

	_, err = s.Execute(ctx, g, 1)

	assert.ErrorIs(t, err, registry.ErrUnknownExecutor)
}

func TestSessionFactory_InvalidWorkspace(t *testing.T) {
	ws := &config.Workspace{Projects: []*config.ProjectConfiguration{{Name: "a"}, {Name: "a"}}}

	_, err := (&SessionFactory{}).NewSession(context.Background(), ws, registry.New())

	assert.ErrorIs(t, err, config.ErrDuplicateProject)
}
