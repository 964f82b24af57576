package strategy

import (
	"tusflow/internal/domain/entities"
	"tusflow/internal/infrastructure/pathing"
	"tusflow/pkg/constants"
)

// DuplicateHandler resolves a filename that collided with an existing
// file in dir into the name that should actually be used.
type DuplicateHandler func(filename, dir string) (string, error)

// FilenameHandler derives the final filename for an upload from its
// metadata and staging id.
type FilenameHandler func(meta entities.UploadMetadata, stagingID string) (string, error)

// Registry is C3: two open dispatch tables, filename and duplicate
// handlers, each mapping a string name to a pure function. Unknown
// names fall back to the documented default, never to an error — this
// mirrors tagged-variant dispatch used throughout the pack.
type Registry struct {
	paths     *pathing.Service
	duplicate map[string]DuplicateHandler
	filename  map[string]FilenameHandler
}

func New(paths *pathing.Service) *Registry {
	r := &Registry{
		paths:     paths,
		duplicate: make(map[string]DuplicateHandler),
		filename:  make(map[string]FilenameHandler),
	}

	r.RegisterDuplicateHandler(constants.OnDuplicatePrevent, func(filename, dir string) (string, error) {
		return filename, nil
	})
	r.RegisterDuplicateHandler(constants.OnDuplicateNumber, func(filename, dir string) (string, error) {
		return paths.UniqueName(filename, dir)
	})

	r.RegisterFilenameHandler(constants.WithFilenameDefault, func(meta entities.UploadMetadata, stagingID string) (string, error) {
		return stagingID, nil
	})
	r.RegisterFilenameHandler(constants.WithFilenameOriginal, func(meta entities.UploadMetadata, stagingID string) (string, error) {
		name := meta.Filename
		if name == "" {
			return stagingID, nil
		}
		name = paths.Sanitize(name)

		dup := meta.OnDuplicate
		if dup == "" {
			dup = constants.OnDuplicatePrevent
		}

		dir := paths.DestinationDir(meta.DestinationPath)
		if !paths.Exists(name, meta.DestinationPath) {
			return name, nil
		}
		return r.DispatchDuplicate(dup, name, dir)
	})

	return r
}

// RegisterDuplicateHandler registers (or overrides) a named duplicate
// policy. Intended to be called at startup.
func (r *Registry) RegisterDuplicateHandler(name string, h DuplicateHandler) {
	r.duplicate[name] = h
}

// RegisterFilenameHandler registers (or overrides) a named filename
// policy. Intended to be called at startup.
func (r *Registry) RegisterFilenameHandler(name string, h FilenameHandler) {
	r.filename[name] = h
}

// DispatchDuplicate resolves name via the named duplicate policy,
// falling back to "prevent" for unknown names.
func (r *Registry) DispatchDuplicate(name, filename, dir string) (string, error) {
	h, ok := r.duplicate[name]
	if !ok {
		h = r.duplicate[constants.OnDuplicatePrevent]
	}
	return h(filename, dir)
}

// FinalFilename dispatches to the filename handler named by
// meta.WithFilename (falling back to "default") to compute the final
// on-disk name for this upload.
func (r *Registry) FinalFilename(meta entities.UploadMetadata, stagingID string) (string, error) {
	name := meta.WithFilename
	if name == "" {
		name = constants.WithFilenameDefault
	}
	h, ok := r.filename[name]
	if !ok {
		h = r.filename[constants.WithFilenameDefault]
	}
	return h(meta, stagingID)
}

// UsesOriginalFilename reports whether the sidecar should be preserved
// alongside the moved file (true) or deleted (false) at finalize time.
func UsesOriginalFilename(meta entities.UploadMetadata) bool {
	return meta.WithFilename == constants.WithFilenameOriginal && meta.Filename != ""
}
