package app

import (
	"github.com/convoy-build/convoy/internal/registry"
	"github.com/convoy-build/convoy/modules/httppush"
	"github.com/convoy-build/convoy/modules/policy"
)

// coreModules is the definitive list of collaborator modules compiled into
// the convoy binary.
var coreModules = []registry.Module{
	&httppush.Module{},
	&policy.Module{},
}
