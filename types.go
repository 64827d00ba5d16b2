package mqttc

import "github.com/riftio/mqttc/wire"

// Properties, ReasonCode, and Will are re-exported from the wire package so
// embedders constructing a Publish/Subscribe/Connect call don't need to
// import it directly for the common case.
type (
	Properties = wire.Properties
	ReasonCode = wire.ReasonCode
	Will       = wire.Will
)

// ServerLimits reports the limits the broker advertised in the most recent
// successful CONNACK (§3, §4.5). A zero ReceiveMaximum or MaximumPacketSize
// means the broker didn't send one, which per spec means "no limit."
type ServerLimits struct {
	ReceiveMaximum    uint16
	MaximumPacketSize uint32
	TopicAliasMaximum uint16

	// SessionExpiryInterval is the broker's acknowledged value, which may
	// differ from what Connect requested.
	SessionExpiryInterval uint32
}

// Reason codes most often inspected by embedders.
const (
	ReasonSuccess             = wire.Success
	ReasonContinueAuth        = wire.ContinueAuthentication
	ReasonReAuthenticate      = wire.ReAuthenticate
	ReasonNotAuthorized       = wire.NotAuthorized
	ReasonDisconnectWithWill  = wire.DisconnectWithWillMessage
	ReasonNormalDisconnect    = wire.NormalDisconnection
	ReasonPacketIDNotFound    = wire.PacketIdentifierNotFound
	ReasonImplementationError = wire.ImplementationSpecificError
)
