package legacy

const GenericError = -2

const (
	AccessTypePreconfig = 0
	AccessTypeDirect    = 1
	AccessTypeProxy     = 2
)

const (
	TransferTypeASCII  = 1
	TransferTypeBinary = 2
)

const (
	FileAccessWrite = 1
	FileAccessRead  = 2
)

// File attribute bits, as reported by directory listings.
const (
	AttributeReadOnly   = 1
	AttributeHidden     = 2
	AttributeSystem     = 4
	AttributeDirectory  = 16
	AttributeArchive    = 32
	AttributeNormal     = 128
	AttributeTemporary  = 256
	AttributeCompressed = 2048
	AttributeOffline    = 4096
)

const (
	msgNoConnection = "No available connection."
	msgCannotReach  = "Could not connect to server"
	msgEmptyDir     = "Empty Directory"
)
