package band

import "github.com/google/uuid"

// The band exposes its characteristics across four services: two vendor
// services plus the standard alert-notification and device-information
// profiles. All ten characteristics below must resolve or the client
// rejects the connection wholesale.
var (
	ServiceBand0             = uuid.MustParse("0000fee0-0000-1000-8000-00805f9b34fb")
	ServiceBand1             = uuid.MustParse("0000fee1-0000-1000-8000-00805f9b34fb")
	ServiceAlertNotification = uuid.MustParse("00001811-0000-1000-8000-00805f9b34fb")
	ServiceDeviceInformation = uuid.MustParse("0000180a-0000-1000-8000-00805f9b34fb")

	CharBattery  = uuid.MustParse("00000006-0000-3512-2118-0009af100700")
	CharSteps    = uuid.MustParse("00000007-0000-3512-2118-0009af100700")
	CharConfig   = uuid.MustParse("00000003-0000-3512-2118-0009af100700")
	CharSettings = uuid.MustParse("00000008-0000-3512-2118-0009af100700")
	CharTime     = uuid.MustParse("00002a2b-0000-1000-8000-00805f9b34fb")

	CharAuth    = uuid.MustParse("00000009-0000-3512-2118-0009af100700")
	CharChunked = uuid.MustParse("00000020-0000-3512-2118-0009af100700")
	CharMusic   = uuid.MustParse("00000010-0000-3512-2118-0009af100700")

	CharAlert    = uuid.MustParse("00002a46-0000-1000-8000-00805f9b34fb")
	CharFirmware = uuid.MustParse("00002a28-0000-1000-8000-00805f9b34fb")
)
