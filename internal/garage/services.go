package garage

// Service types returned by Services.
const (
	ServiceAccessoryInformation = "AccessoryInformation"
	ServiceGarageDoorOpener     = "GarageDoorOpener"
)

// ServiceDescriptor describes one service and its current characteristic values.
type ServiceDescriptor struct {
	Type            string         `json:"type"`
	Characteristics map[string]any `json:"characteristics"`
}

func (a *Accessory) describe() []ServiceDescriptor {
	info := a.Info()
	return []ServiceDescriptor{
		{
			Type: ServiceAccessoryInformation,
			Characteristics: map[string]any{
				"name":             info.Name,
				"manufacturer":     info.Manufacturer,
				"model":            info.Model,
				"serialNumber":     info.SerialNumber,
				"firmwareRevision": info.FirmwareRevision,
			},
		},
		{
			Type: ServiceGarageDoorOpener,
			Characteristics: map[string]any{
				string(CharCurrentDoorState):    int(a.chars.CurrentDoorState()),
				string(CharTargetDoorState):     int(a.chars.TargetDoorState()),
				string(CharObstructionDetected): a.chars.ObstructionDetected(),
			},
		},
	}
}
