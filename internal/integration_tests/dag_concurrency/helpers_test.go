package integration_tests

import (
	"fmt"
	"strings"
)

// sleeperProject renders a project whose build target runs on the sleeper
// executor after the builds of the projects it depends on.
func sleeperProject(name string, deps ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "project %q {\n", name)
	for _, d := range deps {
		fmt.Fprintf(&b, "  dependency %q {}\n", d)
	}
	b.WriteString(`
  target "build" {
    executor   = "sleeper"
    depends_on = ["^build"]
  }
}
`)
	return b.String()
}
