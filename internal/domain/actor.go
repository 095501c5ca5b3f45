package domain

type Role string

const (
	RoleCitizen    Role = "CITOYEN"
	RoleStation    Role = "STATION"
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "GESTIONNAIRE"
)

// Actor is the authenticated caller of a core operation.
type Actor struct {
	UserID     uint   `json:"user_id"`
	Role       Role   `json:"role"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone,omitempty"`
	StationIDs []uint `json:"station_ids,omitempty"`
}

func (a Actor) ManagesStation(stationID uint) bool {
	for _, id := range a.StationIDs {
		if id == stationID {
			return true
		}
	}

	return false
}

func (a Actor) Citizen() Citizen {
	id := a.UserID

	return Citizen{
		UserID:    &id,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
	}
}
