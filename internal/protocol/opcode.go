// Package protocol implements the binary packet codec of spec §4.2: it
// decodes one inbound frame at a time into calls on a Sink, and encodes
// outbound packets from Session/Channel calls via a Transmitter.
package protocol

// Opcode identifies the wire message type. Values are assigned by
// declaration order starting at 0 and MUST be preserved exactly as listed
// here — this is the closed set from spec §4.2.
type Opcode uint8

const (
	SendMulticast     Opcode = iota // 0  out
	RcvMulticast                    // 1  in
	SendBroadcast                   // 2  out
	RcvBroadcast                    // 3  in
	SendUnicast                     // 4  out
	RcvUnicast                      // 5  in
	SendServerMsg                   // 6  out
	ConnectReq                      // 7  out
	ReconnectReq                    // 8  out
	DisconnectReq                   // 9  client->server, and server->client close notice
	ValidationReq                   // 10 in
	ValidationResp                  // 11 out
	UserAccepted                    // 12 in
	UserRejected                    // 13 in
	UserJoined                      // 14 in
	UserLeft                        // 15 in
	UserDisconnected                // 16 in
	UserJoinedChan                  // 17 in
	UserLeftChan                    // 18 in
	RcvReconnectKey                 // 19 in
	ReqJoinChan                     // 20 out
	JoinedChan                      // 21 in
	ReqLeaveChan                    // 22 out
	LeftChan                        // 23 in
	ServerID                        // 24 in
	ChanLocked                      // 25 in, optional
)

// String renders the opcode name for logging.
func (op Opcode) String() string {
	switch op {
	case SendMulticast:
		return "SEND_MULTICAST"
	case RcvMulticast:
		return "RCV_MULTICAST"
	case SendBroadcast:
		return "SEND_BROADCAST"
	case RcvBroadcast:
		return "RCV_BROADCAST"
	case SendUnicast:
		return "SEND_UNICAST"
	case RcvUnicast:
		return "RCV_UNICAST"
	case SendServerMsg:
		return "SEND_SERVER_MSG"
	case ConnectReq:
		return "CONNECT_REQ"
	case ReconnectReq:
		return "RECONNECT_REQ"
	case DisconnectReq:
		return "DISCONNECT_REQ"
	case ValidationReq:
		return "VALIDATION_REQ"
	case ValidationResp:
		return "VALIDATION_RESP"
	case UserAccepted:
		return "USER_ACCEPTED"
	case UserRejected:
		return "USER_REJECTED"
	case UserJoined:
		return "USER_JOINED"
	case UserLeft:
		return "USER_LEFT"
	case UserDisconnected:
		return "USER_DISCONNECTED"
	case UserJoinedChan:
		return "USER_JOINED_CHAN"
	case UserLeftChan:
		return "USER_LEFT_CHAN"
	case RcvReconnectKey:
		return "RCV_RECONNECT_KEY"
	case ReqJoinChan:
		return "REQ_JOIN_CHAN"
	case JoinedChan:
		return "JOINED_CHAN"
	case ReqLeaveChan:
		return "REQ_LEAVE_CHAN"
	case LeftChan:
		return "LEFT_CHAN"
	case ServerID:
		return "SERVER_ID"
	case ChanLocked:
		return "CHAN_LOCKED"
	default:
		return "UNKNOWN"
	}
}
