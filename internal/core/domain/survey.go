package domain

import "time"

// Application is the permit application a citizen files and staff process.
type Application struct {
	ID           string
	ApplicantID  string
	AssignedToID *string
	Status       string
	CreatedAt    time.Time
}

// SurveySession is a field survey run by a surveyor, optionally tied to an application.
type SurveySession struct {
	ID            string
	SurveyorID    string
	ApplicationID *string
	StartLocation GeographicScope
	StartedAt     time.Time
}
