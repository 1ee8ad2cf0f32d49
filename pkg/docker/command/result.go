package command

import "strings"

// CommandResult captures everything a single external invocation produced.
// It is created once per invocation and discarded after translation.
type CommandResult struct {
	// Args is the full command vector, binary included.
	Args []string
	// Dir is the working directory the command ran in.
	Dir      string
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandLine renders the invocation the way a user would have typed it.
func (r CommandResult) CommandLine() string {
	return strings.Join(r.Args, " ")
}
