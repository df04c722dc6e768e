// Package lifecycle tracks the installed schema version of a single
// database and moves it forward through upgrade, overlay and trim
// operations dispatched to statically registered version modules.
package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion identifies one revision of the database structure. It is
// opaque apart from equality; ordering comes from registry position.
type SchemaVersion string

// Conn is the slice of a database session that version modules and the
// inspector need. *db.Conn satisfies it.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Close() error
}

// ConnectFunc mints a fresh connection. Each operation that touches the
// database opens exactly one and closes it on every exit path.
type ConnectFunc func(ctx context.Context) (Conn, error)

// Capability names one of the three migration operations a version module
// may implement.
type Capability string

const (
	CapUpgrade Capability = "upgrade"
	CapOverlay Capability = "overlay"
	CapTrim    Capability = "trim"
)

// ModuleFunc is one migration procedure. For upgrade and overlay the
// version argument is the version migrated from; for trim it is the
// version being removed.
type ModuleFunc func(ctx context.Context, conn Conn, version SchemaVersion) error

// Module bundles the capabilities one schema version provides. Nil
// function fields mean the capability is absent and requests for it are
// rejected. Trim-capable modules must declare PreviousVersion, the
// default version a trim removes.
type Module struct {
	Version         SchemaVersion
	PreviousVersion SchemaVersion
	Upgrade         ModuleFunc
	Overlay         ModuleFunc
	Trim            ModuleFunc
}

func (m Module) proc(c Capability) ModuleFunc {
	switch c {
	case CapUpgrade:
		return m.Upgrade
	case CapOverlay:
		return m.Overlay
	case CapTrim:
		return m.Trim
	}
	return nil
}

// Registry is the ordered catalog of known schema versions. Registration
// order is installation order; the last module is the latest version.
type Registry struct {
	order   []SchemaVersion
	modules map[SchemaVersion]Module
}

// NewRegistry validates and indexes the given modules.
func NewRegistry(modules ...Module) (*Registry, error) {
	if len(modules) == 0 {
		return nil, fmt.Errorf("registry needs at least one version module")
	}
	r := &Registry{modules: make(map[SchemaVersion]Module, len(modules))}
	for _, m := range modules {
		if m.Version == "" {
			return nil, fmt.Errorf("version module with blank version")
		}
		if _, exists := r.modules[m.Version]; exists {
			return nil, fmt.Errorf("duplicate version module %s", m.Version)
		}
		if m.Trim != nil && m.PreviousVersion == "" {
			return nil, fmt.Errorf("version %s supports trim but declares no previous version", m.Version)
		}
		r.order = append(r.order, m.Version)
		r.modules[m.Version] = m
	}
	return r, nil
}

// Resolve returns the module registered for v.
func (r *Registry) Resolve(v SchemaVersion) (Module, error) {
	m, ok := r.modules[v]
	if !ok {
		return Module{}, fmt.Errorf("%w: %s", ErrUnknownVersion, v)
	}
	return m, nil
}

// Latest returns the newest registered version.
func (r *Registry) Latest() SchemaVersion {
	return r.order[len(r.order)-1]
}

// Versions lists the catalog in installation order.
func (r *Registry) Versions() []SchemaVersion {
	out := make([]SchemaVersion, len(r.order))
	copy(out, r.order)
	return out
}

// Require checks that the module implements the capability and returns
// its procedure.
func Require(m Module, c Capability) (ModuleFunc, error) {
	fn := m.proc(c)
	if fn == nil {
		return nil, fmt.Errorf("%w: version %s does not support the %s operation", ErrUnsupportedOperation, m.Version, c)
	}
	return fn, nil
}
