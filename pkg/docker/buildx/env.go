package buildx

import "os"

const DockerCommandEnvVarName = "BUILDFORGE_DOCKER_COMMAND"

// DockerCommandFromEnvironment returns the binary used to reach buildx.
// Overriding it lets tests substitute a harmless command for docker.
func DockerCommandFromEnvironment() string {
	command := os.Getenv(DockerCommandEnvVarName)
	if command == "" {
		command = "docker"
	}
	return command
}
