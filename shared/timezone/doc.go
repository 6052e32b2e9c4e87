// Package timezone centralizes time handling in the application timezone.
// Appointment times are rendered to clients in the business's local zone
// while all persistence stays in UTC.
package timezone
