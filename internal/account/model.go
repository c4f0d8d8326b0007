package account

import "time"

type User struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	PasswordHash     string
	CreatedAt        time.Time
	AppointmentCount int
}

// Profile is the public view of a user; it never carries credential material.
type Profile struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	AppointmentCount int    `json:"appointmentCount"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Phone:            u.Phone,
		AppointmentCount: u.AppointmentCount,
	}
}
