package google

import (
	"autofy/backend/internal/engine"
)

// Register installs every Google capability into the adapter registry.
func Register(registry *engine.Registry, svc *Service) {
	registry.Register(AppGmail, "New Email", engine.AdapterFunc(svc.CheckNewEmails))
	registry.Register(AppGmail, "Send Email", engine.AdapterFunc(svc.SendEmail))

	registry.Register(AppSheets, "Add Row", engine.AdapterFunc(svc.AddRow))
	registry.Register(AppSheets, "Update Row", engine.AdapterFunc(svc.UpdateRow))
	registry.Register(AppSheets, "New Row", engine.AdapterFunc(svc.CheckNewRows))

	registry.Register(AppCalendar, "Create Event", engine.AdapterFunc(svc.CreateEvent))
	registry.Register(AppCalendar, "New Event", engine.AdapterFunc(svc.CheckNewEvents))

	registry.Register(AppDrive, "Create Folder", engine.AdapterFunc(svc.CreateFolder))
	registry.Register(AppDrive, "Upload File", engine.AdapterFunc(svc.UploadFile))
}
