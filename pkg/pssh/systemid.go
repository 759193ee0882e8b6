package pssh

import "github.com/google/uuid"

// Known DRM system IDs.
var (
	PlayReadySystemID = uuid.MustParse("9a04f079-9840-4286-ab92-e65be0885f95")
	WidevineSystemID  = uuid.MustParse("edef8ba9-79d6-4ace-a3c8-27dcd51d21ed")
	FairPlaySystemID  = uuid.MustParse("94ce86fb-07ff-4f43-adb8-93d2fa968ca2")
	ClearKeySystemID  = uuid.MustParse("1077efec-c0b2-4d02-ace3-3c1e52e2fb4b")
)

var systemNames = map[uuid.UUID]string{
	PlayReadySystemID: "PlayReady",
	WidevineSystemID:  "Widevine",
	FairPlaySystemID:  "FairPlay",
	ClearKeySystemID:  "ClearKey",
}

// SystemName returns the name of a known DRM system, or "unknown".
func SystemName(id uuid.UUID) string {
	if name, ok := systemNames[id]; ok {
		return name
	}
	return "unknown"
}

// IsKnownSystem reports whether id is one of the known DRM system IDs.
func IsKnownSystem(id uuid.UUID) bool {
	_, ok := systemNames[id]
	return ok
}
