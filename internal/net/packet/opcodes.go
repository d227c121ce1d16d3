package packet

// Client → server opcodes.
const (
	C_OPCODE_AUTH      byte = 0x01 // [S password]
	C_OPCODE_LIST      byte = 0x02 // []
	C_OPCODE_START     byte = 0x03 // [S system]
	C_OPCODE_STOP      byte = 0x04 // [S system]
	C_OPCODE_PAUSE     byte = 0x05 // [S system]
	C_OPCODE_RESUME    byte = 0x06 // [S system]
	C_OPCODE_QUOTA     byte = 0x07 // [S system][D quota]
	C_OPCODE_ENABLE    byte = 0x08 // [S system][C 0|1]
	C_OPCODE_SUBSCRIBE byte = 0x09 // [S system], empty = all
)

// Server → client opcodes.
const (
	S_OPCODE_HELLO       byte = 0x80 // [D protocol][C auth required][S server name]
	S_OPCODE_AUTH_RESULT byte = 0x81 // [C ok]
	S_OPCODE_SYSTEMS     byte = 0x82 // [H n] n × system status
	S_OPCODE_STATE       byte = 0x83 // one system status
	S_OPCODE_FRAME       byte = 0x84 // [S system][D tick][H n] n × particle
	S_OPCODE_ERROR       byte = 0x85 // [C request opcode][S message]
)

// ProtocolVersion is announced in S_HELLO.
const ProtocolVersion int32 = 1
