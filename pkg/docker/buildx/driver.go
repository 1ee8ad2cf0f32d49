package buildx

// Driver is the backend environment that hosts the build engine. The set of
// drivers is closed; each serializes to exactly one `buildx create` flag.
type Driver interface {
	// String is the driver keyword as buildx spells it.
	String() string
	flag() string
}

type driver string

const (
	// DockerContainer runs BuildKit inside a dedicated container on the
	// local Docker engine.
	DockerContainer driver = "docker-container"
	// Kubernetes runs BuildKit as pods in a Kubernetes cluster.
	Kubernetes driver = "kubernetes"
	// Remote connects to an already-running BuildKit daemon.
	Remote driver = "remote"
)

func (d driver) String() string {
	return string(d)
}

func (d driver) flag() string {
	return "--driver=" + string(d)
}
