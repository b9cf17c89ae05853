// Package all wires every built-in extension into a registry. This is
// the static registration list that replaces runtime plugin discovery:
// adding an extension means adding its Register call here.
package all

import (
	"github.com/payd-dev/payd/extension"
	"github.com/payd-dev/payd/extension/digitalocean"
	"github.com/payd-dev/payd/extension/discord"
	"github.com/payd-dev/payd/extension/proxmox"
	"github.com/payd-dev/payd/extension/stripe"
)

// Register adds every built-in extension to r.
func Register(r *extension.Registry) {
	proxmox.Register(r)
	digitalocean.Register(r)
	stripe.Register(r)
	discord.Register(r)
}

// NewRegistry builds a registry pre-populated with the built-in
// extensions.
func NewRegistry() *extension.Registry {
	r := extension.New()
	Register(r)
	return r
}
