package models

// Contact is the nested primary contact on a location document
type Contact struct {
	Name  string `mapstructure:"name"`
	Phone string `mapstructure:"phone"`
	Email string `mapstructure:"email"`
}

// Location is a property serviced by the portal.
type Location struct {
	ID                       string `mapstructure:"id"`
	Name                     string `mapstructure:"name"`
	Address                  string `mapstructure:"address"`
	AssignedOrganizationID   string `mapstructure:"assignedOrganizationId"`
	AssignedOrganizationName string `mapstructure:"assignedOrganizationName"`
	PartnerOrgID             string `mapstructure:"partnerOrgId"`
	ActiveSessionID          string `mapstructure:"activeSessionId"`

	ContactName        string   `mapstructure:"contactName"`
	ContactPhone       string   `mapstructure:"contactPhone"`
	ContactEmail       string   `mapstructure:"contactEmail"`
	AccessInstructions string   `mapstructure:"accessInstructions"`
	PrimaryContact     *Contact `mapstructure:"primaryContact"`

	// snake_case spellings written by older clients
	LegacyContactName        string `mapstructure:"contact_name"`
	LegacyContactPhone       string `mapstructure:"contact_phone"`
	LegacyContactEmail       string `mapstructure:"contact_email"`
	LegacyAccessInstructions string `mapstructure:"access_instructions"`
}
