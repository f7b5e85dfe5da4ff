// Package publisher provides the Publisher: the real-time side of the bridge.
//
// A [Publisher] is an [http.Handler] that upgrades requests to websockets and
// keeps at most one of them in its subscriber slot. The most recently
// connected client wins; the slot empties when that client disconnects or
// errors. [Publisher.Publish] sends a sample's decimal text to the slot's
// holder as one text message, or drops it when there is none.
//
// The slot state machine is:
//
//	EMPTY    -- connect              --> OCCUPIED
//	OCCUPIED -- connect              --> OCCUPIED (replaced, previous not notified)
//	OCCUPIED -- disconnect/error     --> EMPTY    (only for the holder's own id)
//
// Users of the adcbridge library should not need to interact with this
// package directly.
package publisher
