package relay

// Config configures a Server. The zero value is valid: GroupCacheSize
// and FrameCapacity fall back to package defaults, and the other fields
// are optional.
type Config struct {
	// NodeID is the URL this relay advertises to the origin registry as
	// the origin of the namespaces announced to it. If empty, the relay
	// never registers itself as an origin.
	NodeID string

	// Region is an operator-facing label for this node's deployment
	// region; it has no effect on routing.
	Region string

	// Upstream is an optional relay URL this node dials on startup and
	// forwards from, for deployments that chain relays instead of
	// resolving origins through the registry.
	Upstream string

	// OriginRegistryURL, if set, is the base URL of the origin registry
	// service. When NodeID is also set, the relay records the namespaces
	// announced to it there (via originclient). The relay does not look
	// namespaces up in the registry: a subscribe to a namespace that is
	// not announced locally fails with NotFound.
	OriginRegistryURL string

	// HealthCheckAddr, if set, is the address the health.StatusHandler
	// listens on separately from the relay's QUIC/WebTransport listener.
	HealthCheckAddr string

	// WebTransportAddr, if set, is the address Server.ListenAndServeWebTransport
	// listens on for browser-originating WebTransport sessions, alongside
	// the native-QUIC listener on Addr.
	WebTransportAddr string

	// GroupCacheSize is the maximum number of groups a relayed track's
	// ring cache retains for catch-up.
	GroupCacheSize int

	// FrameCapacity is the byte capacity given to pooled frame buffers.
	FrameCapacity int
}

func (c *Config) groupCacheSize() int {
	if c != nil && c.GroupCacheSize > 0 {
		return c.GroupCacheSize
	}
	return DefaultGroupCacheSize
}

func (c *Config) frameCapacity() int {
	if c != nil && c.FrameCapacity > 0 {
		return c.FrameCapacity
	}
	return DefaultNewFrameCapacity
}
