// Package discovery advertises the bridge's websocket endpoint on the local
// network via mDNS/DNS-SD, so plotting clients can find it without knowing
// the host's address.
package discovery
