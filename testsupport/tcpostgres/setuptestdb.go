//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/racestore/pkg/db/postgres"
)

var containerURL = sync.OnceValues(startContainer)

// SetupTestDBURL starts (or reuses) the test container and returns the
// connection url of its database.
func SetupTestDBURL() (string, error) {
	return containerURL()
}

const (
	image    = "postgres:16"
	password = "password"
)

// startContainer runs a single postgres server shared by all tests of the
// process. The container is reused across runs.
func startContainer() (string, error) {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		return "", err
	}
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Name:         "racestore-test",
				Image:        image,
				Cmd:          []string{"postgres", "-c", "fsync=off"},
				ExposedPorts: []string{string(port)},
				Env: map[string]string{
					"POSTGRES_USER":     "postgres",
					"POSTGRES_PASSWORD": password,
					"POSTGRES_DB":       "postgres",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30 * time.Second),
			},
			Started: true,
			Reuse:   true,
		})
	if err != nil {
		return "", err
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return "", err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword("postgres", password),
		Host:     net.JoinHostPort(host, mapped.Port()),
		Path:     "/postgres",
		RawQuery: "sslmode=disable",
	}
	return u.String(), nil
}

// CreateDatabase creates a new empty database on the server of baseURL and
// returns its url together with a function dropping it again.
func CreateDatabase(ctx context.Context, baseURL string) (string, func(), error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", nil, err
	}
	name := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	admin, err := postgres.Open(ctx, baseURL, nil)
	if err != nil {
		return "", nil, err
	}
	if _, err := admin.Exec(ctx, "create database "+name, nil); err != nil {
		admin.Close()
		return "", nil, err
	}
	drop := func() {
		admin.Exec(context.Background(), "drop database if exists "+name+" with (force)", nil)
		admin.Close()
	}
	u.Path = "/" + name
	return u.String(), drop, nil
}
