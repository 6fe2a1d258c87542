// Package commands implements the file command set served over the
// dispatch boundary.
//
// Each file holds one command: its declared schema, a custom
// validator where the schema cannot express the constraint, and an
// execute function that resolves backend services from the container.
// Commands never touch the filesystem directly; all I/O goes through
// the fsio service so reads stay cached and mutations stay
// transactional.
package commands

import (
	"fmt"

	"github.com/avilab/fscmd/internal/cache"
	"github.com/avilab/fscmd/internal/command"
	"github.com/avilab/fscmd/internal/fsio"
	"github.com/avilab/fscmd/internal/history"
)

// Container keys for the backend services commands resolve.
const (
	ServiceFiles   = "files"
	ServiceCache   = "cache"
	ServiceHistory = "history"
)

// All returns every command in the file command set, ready for
// registration.
func All() []*command.Command {
	return []*command.Command{
		NewReadFile(),
		NewWriteFile(),
		NewEditFile(),
		NewMoveFile(),
		NewDeleteFile(),
		NewCreateDirectory(),
		NewListDirectory(),
		NewGetFileInfo(),
		NewSearchFiles(),
		NewCacheStats(),
		NewCommandLog(),
	}
}

func filesService(cc *command.Context) (*fsio.Service, error) {
	v, err := cc.Services.Get(ServiceFiles)
	if err != nil {
		return nil, err
	}
	svc, ok := v.(*fsio.Service)
	if !ok {
		return nil, fmt.Errorf("service %q has unexpected type %T", ServiceFiles, v)
	}
	return svc, nil
}

func cacheService(cc *command.Context) (*cache.Cache, error) {
	v, err := cc.Services.Get(ServiceCache)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*cache.Cache)
	if !ok {
		return nil, fmt.Errorf("service %q has unexpected type %T", ServiceCache, v)
	}
	return c, nil
}

func historyService(cc *command.Context) (*history.Store, error) {
	v, err := cc.Services.Get(ServiceHistory)
	if err != nil {
		return nil, err
	}
	s, ok := v.(*history.Store)
	if !ok {
		return nil, fmt.Errorf("service %q has unexpected type %T", ServiceHistory, v)
	}
	return s, nil
}

// pathField is the schema declaration shared by every command that
// takes a single target path.
func pathField(desc string) command.Field {
	return command.Field{
		Name:        "path",
		Type:        command.TypeString,
		Description: desc,
		Required:    true,
	}
}
