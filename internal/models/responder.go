package models

// Availability is a responder's current assignment state. It is derived from
// load versus capacity, except when the responder is explicitly offline.
type Availability string

const (
	Available Availability = "available"
	Busy      Availability = "busy"
	Offline   Availability = "offline"
)

// Shift is the working window a responder covers.
type Shift string

const (
	ShiftDay   Shift = "day"
	ShiftNight Shift = "night"
)

// Responder is a team member eligible for ticket assignment.
type Responder struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	Email        string       `json:"email" yaml:"email"`
	Role         string       `json:"role,omitempty" yaml:"role"`
	Skills       []string     `json:"skills" yaml:"skills"`
	Group        string       `json:"group" yaml:"group"`
	Availability Availability `json:"availability" yaml:"availability"`
	CurrentLoad  int          `json:"currentLoad" yaml:"currentLoad"`
	MaxLoad      int          `json:"maxLoad" yaml:"maxLoad"`
	Shift        Shift        `json:"shift" yaml:"shift"`
	Timezone     string       `json:"timezone,omitempty" yaml:"timezone"`
}

// HasAnySkill reports whether the responder holds at least one of the
// required skills.
func (r Responder) HasAnySkill(required []string) bool {
	for _, want := range required {
		for _, have := range r.Skills {
			if have == want {
				return true
			}
		}
	}
	return false
}

// UnderCapacity reports whether the responder can take another ticket.
func (r Responder) UnderCapacity() bool {
	return r.CurrentLoad < r.MaxLoad
}
