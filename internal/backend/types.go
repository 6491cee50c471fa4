package backend

import "time"

// Reservation is a reservation as stored by the backend.
type Reservation struct {
	ID          string    `json:"id"`
	SpotID      string    `json:"spotId"`
	Plate       string    `json:"plate"`
	VehicleType string    `json:"vehicleType"`
	Start       time.Time `json:"startTimestamp"`
	End         time.Time `json:"endTimestamp"`
	Status      string    `json:"status"`
}

// Vehicle is a vehicle registered by a driver.
type Vehicle struct {
	ID    string `json:"id,omitempty"`
	Plate string `json:"plate"`
	Type  string `json:"type"`
	Model string `json:"model,omitempty"`
	Color string `json:"color,omitempty"`
}

// Complaint is an irregular-parking report filed by an agent.
type Complaint struct {
	ID          string    `json:"id,omitempty"`
	Plate       string    `json:"plate"`
	SpotID      string    `json:"spotId,omitempty"`
	Description string    `json:"description"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the token issued by the backend.
type LoginResponse struct {
	Token string `json:"token"`
}

type availabilityRequest struct {
	SpotID string `json:"spotId"`
	Day    string `json:"day"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
