package wire

// ReasonCode is an MQTT v5.0 reason code, carried in CONNACK, PUBACK,
// PUBREC, PUBREL, PUBCOMP, SUBACK, UNSUBACK, DISCONNECT, and AUTH.
type ReasonCode uint8

// Reason codes shared across multiple packet types (section 2.4).
const (
	Success                             ReasonCode = 0x00
	NormalDisconnection                 ReasonCode = 0x00
	GrantedQoS0                         ReasonCode = 0x00
	GrantedQoS1                         ReasonCode = 0x01
	GrantedQoS2                         ReasonCode = 0x02
	DisconnectWithWillMessage           ReasonCode = 0x04
	NoMatchingSubscribers               ReasonCode = 0x10
	NoSubscriptionExisted               ReasonCode = 0x11
	ContinueAuthentication              ReasonCode = 0x18
	ReAuthenticate                      ReasonCode = 0x19
	UnspecifiedError                    ReasonCode = 0x80
	MalformedPacket                     ReasonCode = 0x81
	ProtocolError                       ReasonCode = 0x82
	ImplementationSpecificError         ReasonCode = 0x83
	UnsupportedProtocolVersion          ReasonCode = 0x84
	ClientIdentifierNotValid            ReasonCode = 0x85
	BadUserNameOrPassword               ReasonCode = 0x86
	NotAuthorized                       ReasonCode = 0x87
	ServerUnavailable                   ReasonCode = 0x88
	ServerBusy                          ReasonCode = 0x89
	Banned                              ReasonCode = 0x8A
	ServerShuttingDown                  ReasonCode = 0x8B
	BadAuthenticationMethod             ReasonCode = 0x8C
	KeepAliveTimeout                    ReasonCode = 0x8D
	SessionTakenOver                    ReasonCode = 0x8E
	TopicFilterInvalid                  ReasonCode = 0x8F
	TopicNameInvalid                    ReasonCode = 0x90
	PacketIdentifierInUse               ReasonCode = 0x91
	PacketIdentifierNotFound            ReasonCode = 0x92
	ReceiveMaximumExceeded              ReasonCode = 0x93
	TopicAliasInvalid                   ReasonCode = 0x94
	PacketTooLarge                      ReasonCode = 0x95
	MessageRateTooHigh                  ReasonCode = 0x96
	QuotaExceeded                       ReasonCode = 0x97
	AdministrativeAction                ReasonCode = 0x98
	PayloadFormatInvalid                ReasonCode = 0x99
	RetainNotSupported                  ReasonCode = 0x9A
	QoSNotSupported                     ReasonCode = 0x9B
	UseAnotherServer                    ReasonCode = 0x9C
	ServerMoved                         ReasonCode = 0x9D
	SharedSubscriptionsNotSupported     ReasonCode = 0x9E
	ConnectionRateExceeded              ReasonCode = 0x9F
	MaximumConnectTime                  ReasonCode = 0xA0
	SubscriptionIdentifiersNotSupported ReasonCode = 0xA1
	WildcardSubscriptionsNotSupported   ReasonCode = 0xA2
)

func (r ReasonCode) String() string {
	if s, ok := reasonCodeNames[r]; ok {
		return s
	}
	return "UNKNOWN_REASON_CODE"
}

// Error makes a bare ReasonCode usable as an errors.Is target.
func (r ReasonCode) Error() string { return r.String() }

// IsError reports whether r indicates anything other than success/normal
// completion (values below 0x80, plus the few below that are still success
// variants, are not errors).
func (r ReasonCode) IsError() bool {
	switch r {
	case Success, GrantedQoS1, GrantedQoS2, DisconnectWithWillMessage,
		NoMatchingSubscribers, NoSubscriptionExisted, ContinueAuthentication, ReAuthenticate:
		return false
	default:
		return r >= 0x80
	}
}

var reasonCodeNames = map[ReasonCode]string{
	Success:                  "SUCCESS",
	GrantedQoS1:              "GRANTED_QOS_1",
	GrantedQoS2:              "GRANTED_QOS_2",
	NoMatchingSubscribers:    "NO_MATCHING_SUBSCRIBERS",
	NoSubscriptionExisted:    "NO_SUBSCRIPTION_EXISTED",
	ContinueAuthentication:   "CONTINUE_AUTHENTICATION",
	ReAuthenticate:           "RE_AUTHENTICATE",
	UnspecifiedError:         "UNSPECIFIED_ERROR",
	MalformedPacket:          "MALFORMED_PACKET",
	ProtocolError:            "PROTOCOL_ERROR",
	NotAuthorized:            "NOT_AUTHORIZED",
	ServerUnavailable:        "SERVER_UNAVAILABLE",
	ServerBusy:               "SERVER_BUSY",
	Banned:                   "BANNED",
	BadAuthenticationMethod:  "BAD_AUTHENTICATION_METHOD",
	KeepAliveTimeout:         "KEEP_ALIVE_TIMEOUT",
	SessionTakenOver:         "SESSION_TAKEN_OVER",
	TopicFilterInvalid:       "TOPIC_FILTER_INVALID",
	TopicNameInvalid:         "TOPIC_NAME_INVALID",
	PacketIdentifierInUse:    "PACKET_IDENTIFIER_IN_USE",
	PacketIdentifierNotFound: "PACKET_IDENTIFIER_NOT_FOUND",
	ReceiveMaximumExceeded:   "RECEIVE_MAXIMUM_EXCEEDED",
	TopicAliasInvalid:        "TOPIC_ALIAS_INVALID",
	PacketTooLarge:           "PACKET_TOO_LARGE",
	QuotaExceeded:            "QUOTA_EXCEEDED",
	PayloadFormatInvalid:     "PAYLOAD_FORMAT_INVALID",
	RetainNotSupported:       "RETAIN_NOT_SUPPORTED",
	QoSNotSupported:          "QOS_NOT_SUPPORTED",
	UseAnotherServer:         "USE_ANOTHER_SERVER",
	ServerMoved:              "SERVER_MOVED",
}
