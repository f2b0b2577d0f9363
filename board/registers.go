package board

// Register map of the MultiIO card firmware. Multi byte values are little endian.
const (
	RegRelays     uint8 = 0
	RegRelaySet   uint8 = 1
	RegRelayClr   uint8 = 2
	RegLeds       uint8 = 3
	RegLedSet     uint8 = 4
	RegLedClr     uint8 = 5
	RegOpto       uint8 = 6
	RegAnalogType uint8 = 7

	RegUIn  uint8 = 8
	RegIIn  uint8 = RegUIn + analogValueSize*UInChannels
	RegUOut uint8 = RegIIn + analogValueSize*IInChannels
	RegIOut uint8 = RegUOut + analogValueSize*UOutChannels

	RegMotor  uint8 = RegIOut + analogValueSize*IOutChannels
	RegServo  uint8 = RegMotor + servoValueSize
	RegRtdVal uint8 = RegServo + servoValueSize*ServoChannels
	RegRtdRes uint8 = RegRtdVal + rtdDataSize*RtdChannels

	RegDiagTemperature uint8 = RegRtdRes + rtdDataSize*RtdChannels
	RegDiag3v3         uint8 = RegDiagTemperature + 1

	RegOptoRising      uint8 = RegDiag3v3 + 2
	RegOptoFalling     uint8 = RegOptoRising + 1
	RegOptoEncEnable   uint8 = RegOptoFalling + 1
	RegOptoCntReset    uint8 = RegOptoEncEnable + 1
	RegOptoEncCntReset uint8 = RegOptoCntReset + 1
	RegOptoEdgeCount   uint8 = RegOptoEncCntReset + 1
	RegOptoEncCount    uint8 = RegOptoEdgeCount + counterSize*OptoChannels

	RegCalibValue   uint8 = RegOptoEncCount + counterSize*EncoderChannels
	RegCalibChannel uint8 = RegCalibValue + 4
	RegCalibKey     uint8 = RegCalibChannel + 1
	RegCalibStatus  uint8 = RegCalibKey + 1

	RegRtcYear    uint8 = RegCalibStatus + 1
	RegRtcSetYear uint8 = RegRtcYear + 6
	RegRtcCmd     uint8 = RegRtcSetYear + 6

	RegWdtReset           uint8 = RegRtcCmd + 1
	RegWdtIntervalSet     uint8 = RegWdtReset + 1
	RegWdtIntervalGet     uint8 = RegWdtIntervalSet + 2
	RegWdtInitIntervalSet uint8 = RegWdtIntervalGet + 2
	RegWdtInitIntervalGet uint8 = RegWdtInitIntervalSet + 2
	RegWdtResetCount      uint8 = RegWdtInitIntervalGet + 2
	RegWdtClearResetCount uint8 = RegWdtResetCount + 2
	RegWdtOffIntervalSet  uint8 = RegWdtClearResetCount + 1
	RegWdtOffIntervalGet  uint8 = RegWdtOffIntervalSet + 4

	RegRevisionHwMajor uint8 = 0x78
	RegRevisionHwMinor uint8 = RegRevisionHwMajor + 1
	RegRevisionMajor   uint8 = RegRevisionHwMinor + 1
	RegRevisionMinor   uint8 = RegRevisionMajor + 1
	RegButton          uint8 = RegRevisionMinor + 1

	// RegisterFileSize is the size of the addressable register space.
	RegisterFileSize = 256
)

const (
	BaseAddress uint16 = 0x06
	MaxStack           = 7

	RelayChannels   = 2
	LedChannels     = 6
	OptoChannels    = 4
	EncoderChannels = OptoChannels / 2
	UInChannels     = 2
	IInChannels     = 2
	UOutChannels    = 2
	IOutChannels    = 2
	RtdChannels     = 2
	ServoChannels   = 2

	analogValueSize = 2
	servoValueSize  = 2
	rtdDataSize     = 4
	counterSize     = 4

	calibrationKey         = 0xaa
	resetCalibrationKey    = 0x55
	wdtResetSignature      = 0xca
	wdtClearCountSignature = 0xbe

	voltToMillivolt    = 1000
	milliampToMicroamp = 1000
	servoScale         = 10
)

// calibration channel numbers used by the firmware
const (
	calibRtdCh1  = 1
	calibUInCh1  = 3
	calibIInCh1  = 5
	calibUOutCh1 = 7
	calibIOutCh1 = 9
)
