package modules

import "github.com/rash-sh/rash-go/internal/module"

// NewDefaultRegistry returns a module.Registry with every built-in
// module registered under its dispatch name. cmd/rash and
// internal/privilege.RunChild both build their executor/child dispatch
// off this same registry, so a forked child resolves exactly the
// modules the parent would have.
func NewDefaultRegistry() *module.Registry {
	r := module.NewRegistry()
	r.Register(NewCommandModule())
	r.Register(NewShellModule())
	r.Register(NewCopyModule())
	r.Register(NewFileModule())
	r.Register(NewStatModule())
	r.Register(NewFindModule())
	r.Register(NewArchiveModule())
	r.Register(NewUnarchiveModule())
	r.Register(NewTemplateModule())
	r.Register(NewDebugModule())
	r.Register(NewAssertModule())
	r.Register(NewServiceModule())
	r.Register(NewFirewalldModule())
	r.Register(NewIptablesModule())
	r.Register(NewDockerContainerModule())
	r.Register(NewDockerImageModule())
	return r
}
