package service

import (
	"strings"

	"github.com/sakif/carkeeper/internal/model"
)

// MaintenanceInterval is the mileage threshold for the service-due warning:
// a vehicle is flagged after 5000 miles without an oil change or general
// maintenance entry in its history.
const MaintenanceInterval = 5000

// ServiceDue reports whether a vehicle is overdue for maintenance.
//
// The rule, as a pure function of the vehicle and its history:
//   - No record whose task mentions "oil" or "maintenance" → due once the
//     odometer passes MaintenanceInterval (a fresh vehicle with unknown
//     service history and 5000+ miles on the clock deserves a look).
//   - Otherwise → due once the odometer is more than MaintenanceInterval
//     past the HIGHEST mileage among those records.
//
// The match is a case-insensitive substring check. That is deliberately
// crude ("Coil replacement" counts as an oil change) but it is the behavior
// users of the app already rely on, so it stays.
//
// Nothing here is persisted — callers recompute on every render of the
// selected vehicle.
func ServiceDue(vehicle *model.Vehicle, records []model.Record) bool {
	lastMaintenance := -1
	for _, r := range records {
		task := strings.ToLower(r.Task)
		if !strings.Contains(task, "oil") && !strings.Contains(task, "maintenance") {
			continue
		}
		if r.Mileage > lastMaintenance {
			lastMaintenance = r.Mileage
		}
	}

	if lastMaintenance < 0 {
		return vehicle.CurrentMileage > MaintenanceInterval
	}
	return vehicle.CurrentMileage-lastMaintenance > MaintenanceInterval
}
