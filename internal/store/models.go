package store

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Phone        *string
	Role         string
	CreatedAt    time.Time
}

type Category struct {
	ID          string
	Name        string
	Description string
	Icon        *string
}

type Issue struct {
	ID                 string
	UserID             string
	CategoryID         string
	Title              string
	Description        string
	Image              *string
	Voice              *string
	VoiceTranscript    *string
	LocationLat        float64
	LocationLong       float64
	Address            *string
	Status             string
	ExpectedCompletion *time.Time
	ActualCompletion   *time.Time
	VoteCount          int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Vote struct {
	ID        string
	IssueID   string
	UserID    string
	CreatedAt time.Time
}

type Comment struct {
	ID        string
	IssueID   string
	UserID    string
	Message   string
	CreatedAt time.Time
}

// Notification is declared for forward compatibility with the mobile client;
// no endpoint writes or reads it yet.
type Notification struct {
	ID        string
	UserID    string
	IssueID   *string
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// IssueFilter narrows ListIssues. Lat/Lng set means bounding-box filtering;
// Radius is accepted from the API but not part of the box math.
type IssueFilter struct {
	LatMin     float64
	LatMax     float64
	LngMin     float64
	LngMax     float64
	HasBounds  bool
	CategoryID string
	Limit      int
}
