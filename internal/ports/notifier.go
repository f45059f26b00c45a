package ports

// Notifier broadcasts fire-and-forget session notifications to external
// listeners (UI toasts, other windows). No payload, no delivery guarantee.
type Notifier interface {
	EmitSessionDropped()
	EmitNetworkLost()
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) EmitSessionDropped() {}
func (NopNotifier) EmitNetworkLost()    {}
