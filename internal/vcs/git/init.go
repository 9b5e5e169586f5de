// Package git registers itself with the change log registry on import.
//
// Usage:
//
//	import _ "github.com/taskdepot/td/internal/vcs/git" // Auto-registers via init()
//
//	v, err := vcs.Init(vcs.TypeGit, root)
//	if err != nil {
//	    return err
//	}
package git

import "github.com/taskdepot/td/internal/vcs"

// init registers the git backend with the registry.
// This is called automatically when the package is imported.
func init() {
	vcs.Register(vcs.TypeGit, vcs.Backend{
		Open: func(root string) (vcs.VCS, error) {
			g, err := Open(root)
			if err != nil {
				return nil, err
			}
			return g, nil
		},
		Init: func(root string) (vcs.VCS, error) {
			g, err := Init(root)
			if err != nil {
				return nil, err
			}
			return g, nil
		},
		Marker: ".git",
	})
}
