package model

// BookableService is a service as listed by the booking API itself, as
// opposed to a ServiceQuery from the local catalog.
type BookableService struct {
	ID              int
	Name            string
	Description     string
	DurationMinutes int
	Active          bool
	ProviderIDs     []int
}

// Provider is a staff member or resource that services are booked with.
type Provider struct {
	ID          int
	Name        string
	Description string
	Active      bool
}
