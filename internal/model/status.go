package model

import "time"

// Status is the summary shown above the interactive menu.
type Status struct {
	Database string
	Account  string
	Count    int
	Oldest   time.Time
	Newest   time.Time
	Filtered int
	Filter   FilterState
}
