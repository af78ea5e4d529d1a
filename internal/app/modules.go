package app

import (
	"io"

	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/modules/envvars"
	"github.com/vk/taskgrid/modules/noop"
	"github.com/vk/taskgrid/modules/print"
	"github.com/vk/taskgrid/modules/runcommands"
)

// coreModules is the definitive list of all executor modules that are
// compiled into the taskgrid binary.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&runcommands.Module{},
		&print.Module{Out: outW},
		&envvars.Module{},
		&noop.Module{},
	}
}
