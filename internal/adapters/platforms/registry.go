package platforms

import (
	"fmt"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

type registryKey struct {
	platform       string
	connectionType string
}

// Registry resolves gateways by (platform, connection type). Registration
// happens once at bootstrap; lookups are read-only afterwards, so there is
// no lock.
type Registry struct {
	gateways map[registryKey]ports.PlatformGateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: map[registryKey]ports.PlatformGateway{}}
}

// NewDefaultRegistry wires the full adapter set from one shared config.
func NewDefaultRegistry(cfg Config) *Registry {
	r := NewRegistry()
	r.Register(domain.PlatformFacebook, domain.ConnectionTypeStandard, NewFacebookGateway(cfg))
	r.Register(domain.PlatformInstagram, domain.ConnectionTypeFacebookBusiness, NewInstagramGateway(cfg))
	r.Register(domain.PlatformInstagram, domain.ConnectionTypeInstagramDirect, NewInstagramDirectGateway(cfg))
	r.Register(domain.PlatformLinkedIn, domain.ConnectionTypeStandard, NewLinkedInGateway(cfg))
	return r
}

func (r *Registry) Register(platform, connectionType string, gw ports.PlatformGateway) {
	r.gateways[registryKey{platform, connectionType}] = gw
}

func (r *Registry) Resolve(platform, connectionType string) (ports.PlatformGateway, error) {
	if connectionType == "" {
		connectionType = domain.ConnectionTypeStandard
	}
	if gw, ok := r.gateways[registryKey{platform, connectionType}]; ok {
		return gw, nil
	}
	// Instagram accounts connected before the direct API existed carry the
	// standard connection type and route through the business gateway.
	if platform == domain.PlatformInstagram {
		if gw, ok := r.gateways[registryKey{platform, domain.ConnectionTypeFacebookBusiness}]; ok {
			return gw, nil
		}
	}
	return nil, fmt.Errorf("%w: no gateway for platform %q connection %q", domain.ErrInvalidInput, platform, connectionType)
}
