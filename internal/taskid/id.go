// internal/taskid/id.go
package taskid

import (
	"fmt"
	"regexp"
	"strings"
)

// separator splits the parts of a task identifier.
const separator = ":"

// segmentRegex is used to validate a single part of an identifier.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_.@/+-]+$`)

// ID is the structured representation of a unique task identifier.
type ID struct {
	Project       string
	Target        string
	Configuration string // empty when the task runs without a configuration.
}

// New builds an ID from its parts.
func New(project, target, configuration string) ID {
	return ID{Project: project, Target: target, Configuration: configuration}
}

// String serializes the ID into its canonical representation.
func (id ID) String() string {
	var sb strings.Builder
	sb.WriteString(id.Project)
	sb.WriteString(separator)
	sb.WriteString(id.Target)
	if id.Configuration != "" {
		sb.WriteString(separator)
		sb.WriteString(id.Configuration)
	}
	return sb.String()
}

// isValidSegment checks for undesirable but technically valid names.
func isValidSegment(name string) bool {
	if name == "." || name == ".." || name == "-" {
		return false
	}
	return segmentRegex.MatchString(name)
}

// Parse creates a new ID by parsing its canonical string representation.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return ID{}, fmt.Errorf("task identifier cannot be empty")
	}

	parts := strings.Split(raw, separator)
	if len(parts) < 2 || len(parts) > 3 {
		return ID{}, fmt.Errorf("invalid task identifier %q: expected project:target[:configuration]", raw)
	}
	for _, p := range parts {
		if !isValidSegment(p) {
			return ID{}, fmt.Errorf("invalid task identifier %q: bad segment %q", raw, p)
		}
	}

	id := ID{Project: parts[0], Target: parts[1]}
	if len(parts) == 3 {
		id.Configuration = parts[2]
	}
	return id, nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// static tables.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}
