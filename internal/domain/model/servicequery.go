package model

// ServiceQuery is one catalog entry: a bookable service offered by a provider,
// the name shown to visitors, and the weekday rule applied to its dates.
type ServiceQuery struct {
	ServiceID   int
	ProviderID  int
	DisplayName string
	Weekday     WeekdayFilter
}
