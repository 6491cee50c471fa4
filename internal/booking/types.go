package booking

import "time"

// Step is a position in the booking wizard.
type Step int

const (
	StepSelectSpot Step = iota + 1
	StepSelectDay
	StepSelectStartTime
	StepSelectEndTime
	StepEnterVehicleInfo
	StepConfirm
	StepResult
)

var stepNames = map[Step]string{
	StepSelectSpot:       "select_spot",
	StepSelectDay:        "select_day",
	StepSelectStartTime:  "select_start_time",
	StepSelectEndTime:    "select_end_time",
	StepEnterVehicleInfo: "enter_vehicle_info",
	StepConfirm:          "confirm",
	StepResult:           "result",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// SubmissionStatus tracks the reservation request.
type SubmissionStatus string

const (
	SubmissionNotStarted SubmissionStatus = "not_started"
	SubmissionPending    SubmissionStatus = "pending"
	SubmissionSuccess    SubmissionStatus = "success"
	SubmissionFailure    SubmissionStatus = "failure"
)

// SpotStatus is the live status reported by the backend for a spot.
type SpotStatus string

const (
	SpotAvailable   SpotStatus = "available"
	SpotOccupied    SpotStatus = "occupied"
	SpotMaintenance SpotStatus = "maintenance"
)

// Spot is a reservable parking location as reported by the backend.
type Spot struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Zone      string     `json:"zone,omitempty"`
	Status    SpotStatus `json:"status"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
}

// Selection is the user's in-progress choice. Day is YYYY-MM-DD, times are HH:MM.
type Selection struct {
	SpotID       string `json:"spotId,omitempty"`
	SpotLabel    string `json:"spotLabel,omitempty"`
	Day          string `json:"day,omitempty"`
	StartTime    string `json:"startTime,omitempty"`
	EndTime      string `json:"endTime,omitempty"`
	VehiclePlate string `json:"vehiclePlate,omitempty"`
	VehicleType  string `json:"vehicleType,omitempty"`
}

// AvailabilityWindow holds the slot grid for one spot on one day.
type AvailabilityWindow struct {
	SpotID         string   `json:"spotId"`
	Day            string   `json:"day"`
	AvailableSlots []string `json:"availableSlots"`
	OccupiedSlots  []string `json:"occupiedSlots"`
}

// ReservationRequest is the payload sent to the backend on submission.
type ReservationRequest struct {
	SpotID         string    `json:"spotId"`
	VehicleType    string    `json:"vehicleType"`
	Plate          string    `json:"plate"`
	StartTimestamp time.Time `json:"startTimestamp"`
	EndTimestamp   time.Time `json:"endTimestamp"`
}

// ReservationResponse is the backend's answer to a submission.
type ReservationResponse struct {
	Success       bool   `json:"success"`
	ReservationID string `json:"reservationId,omitempty"`
	Message       string `json:"message,omitempty"`
}
