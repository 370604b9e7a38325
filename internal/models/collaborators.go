package models

import "time"

// SystemDetails is a catalog (CMDB) entry resolved from an event source.
type SystemDetails struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	SystemType   string   `json:"systemType"`
	Environment  string   `json:"environment,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Services     []string `json:"services,omitempty"`
	Status       string   `json:"status,omitempty"`
}

// Change is an entry from the recent-change log.
type Change struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Type            string    `json:"type,omitempty"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	AffectedSystems []string  `json:"affectedSystems"`
	Status          string    `json:"status,omitempty"`
}

// Article is a knowledge-base entry describing a known issue and its fix.
type Article struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Symptoms []string `json:"symptoms"`
	Solution string   `json:"solution"`
	Category string   `json:"category,omitempty"`
}

// HistoricalIncident is a resolved past incident used for pattern matching.
type HistoricalIncident struct {
	Number         string  `json:"number,omitempty"`
	Title          string  `json:"title"`
	Category       string  `json:"category,omitempty"`
	RootCause      string  `json:"rootCause"`
	Resolution     string  `json:"resolution"`
	ResolutionTime float64 `json:"resolutionTime"`
	Occurrences    int     `json:"occurrences"`
}
