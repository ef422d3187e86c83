package service

// Service choice octet values (ANSI/ASHRAE 135 clause 20.1.2, tables
// 20-2 and 20-3): confirmed choices 0..29 and unconfirmed choices 0..9.
// Higher choice numbers are not listed, and only some of the listed
// services have a codec in this package.
const (
	ConfirmedAcknowledgeAlarm       byte = 0
	ConfirmedCOVNotification        byte = 1
	ConfirmedEventNotification      byte = 2
	ConfirmedGetAlarmSummary        byte = 3
	ConfirmedGetEnrollmentSummary   byte = 4
	ConfirmedSubscribeCOV           byte = 5
	ConfirmedAtomicReadFile         byte = 6
	ConfirmedAtomicWriteFile        byte = 7
	ConfirmedAddListElement         byte = 8
	ConfirmedRemoveListElement      byte = 9
	ConfirmedCreateObject           byte = 10
	ConfirmedDeleteObject           byte = 11
	ConfirmedReadProperty           byte = 12
	ConfirmedReadPropertyConditional byte = 13
	ConfirmedReadPropertyMultiple   byte = 14
	ConfirmedWriteProperty          byte = 15
	ConfirmedWritePropertyMultiple  byte = 16
	ConfirmedDeviceCommunicationControl byte = 17
	ConfirmedConfirmedPrivateTransfer byte = 18
	ConfirmedConfirmedTextMessage   byte = 19
	ConfirmedReinitializeDevice     byte = 20
	ConfirmedVTOpen                 byte = 21
	ConfirmedVTClose                byte = 22
	ConfirmedVTData                 byte = 23
	ConfirmedAuthenticate           byte = 24
	ConfirmedRequestKey             byte = 25
	ConfirmedReadRange              byte = 26
	ConfirmedLifeSafetyOperation    byte = 27
	ConfirmedSubscribeCOVProperty   byte = 28
	ConfirmedGetEventInformation    byte = 29
)

const (
	UnconfirmedIAm                   byte = 0
	UnconfirmedIHave                 byte = 1
	UnconfirmedUnconfirmedCOVNotification byte = 2
	UnconfirmedUnconfirmedEventNotification byte = 3
	UnconfirmedUnconfirmedPrivateTransfer byte = 4
	UnconfirmedUnconfirmedTextMessage byte = 5
	UnconfirmedTimeSynchronization    byte = 6
	UnconfirmedWhoHas                byte = 7
	UnconfirmedWhoIs                 byte = 8
	UnconfirmedUTCTimeSynchronization byte = 9
)
