package domain

import "strings"

// Settings holds the site-wide options edited from the admin dashboard.
type Settings struct {
	SiteName         string            `json:"siteName"`
	Tagline          string            `json:"tagline"`
	ContactEmail     string            `json:"contactEmail"`
	RegistrationOpen bool              `json:"registrationOpen"`
	EventDate        string            `json:"eventDate,omitempty"`
	SocialLinks      map[string]string `json:"socialLinks,omitempty"`
}

// DefaultSettings is served until an admin saves settings.
func DefaultSettings() Settings {
	return Settings{
		SiteName: "TIC Summit",
		Tagline:  "Empowering the next generation of tech innovators",
	}
}

// SettingsDraft is the admin payload for site settings.
type SettingsDraft struct {
	SiteName         string            `json:"siteName" validate:"required,max=100"`
	Tagline          string            `json:"tagline" validate:"max=300"`
	ContactEmail     string            `json:"contactEmail" validate:"omitempty,email"`
	RegistrationOpen bool              `json:"registrationOpen"`
	EventDate        string            `json:"eventDate" validate:"omitempty,datetime=2006-01-02"`
	SocialLinks      map[string]string `json:"socialLinks" validate:"max=10,dive,keys,required,max=30,endkeys,url"`
}

// Settings converts the draft into stored settings.
func (d SettingsDraft) Settings() Settings {
	return Settings{
		SiteName:         strings.TrimSpace(d.SiteName),
		Tagline:          d.Tagline,
		ContactEmail:     d.ContactEmail,
		RegistrationOpen: d.RegistrationOpen,
		EventDate:        d.EventDate,
		SocialLinks:      d.SocialLinks,
	}
}
