package scriptrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Controller simulator image and ports inside the container.
const (
	SimulatorImage = "universalrobots/ursim_e-series"

	primaryPort   = "30001/tcp"
	dashboardPort = "29999/tcp"

	// dockerHostAlias resolves to the docker host from inside the container.
	dockerHostAlias = "host.docker.internal"
)

// ContainerLauncher runs the controller simulator in a container. A
// container started by an earlier run with the same version is reused.
type ContainerLauncher struct {
	StartupTimeout time.Duration
}

// NewContainerLauncher creates a launcher with default timeouts.
func NewContainerLauncher() *ContainerLauncher {
	return &ContainerLauncher{StartupTimeout: 3 * time.Minute}
}

// Launch starts, or reuses, a simulator container for version.
func (l *ContainerLauncher) Launch(ctx context.Context, version string) (Controller, error) {
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        SimulatorImage + ":" + version,
			Name:         "urtest-ursim-" + version,
			ExposedPorts: []string{primaryPort, dashboardPort},
			ExtraHosts:   []string{dockerHostAlias + ":host-gateway"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(primaryPort).WithStartupTimeout(l.StartupTimeout),
				wait.ForListeningPort(dashboardPort).WithStartupTimeout(l.StartupTimeout),
			),
		},
		Started: true,
		Reuse:   true,
	}

	c, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("starting %s: %w", req.Image, err)
	}
	return &containerController{container: c}, nil
}

type containerController struct {
	container testcontainers.Container
}

func (c *containerController) Endpoint(ctx context.Context) (string, int, int, error) {
	host, err := c.container.Host(ctx)
	if err != nil {
		return "", 0, 0, err
	}
	primary, err := c.container.MappedPort(ctx, primaryPort)
	if err != nil {
		return "", 0, 0, err
	}
	dashboard, err := c.container.MappedPort(ctx, dashboardPort)
	if err != nil {
		return "", 0, 0, err
	}
	return host, primary.Int(), dashboard.Int(), nil
}

func (c *containerController) CallbackHost() string {
	return dockerHostAlias
}

func (c *containerController) Stop(ctx context.Context) error {
	return c.container.Terminate(ctx)
}
