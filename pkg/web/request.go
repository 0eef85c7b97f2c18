package web

import "time"

// DateRange binds optional inclusive start_date and end_date query parameters.
type DateRange struct {
	StartDate time.Time `form:"start_date" time_format:"2006-01-02" time_utc:"1"`
	EndDate   time.Time `form:"end_date" time_format:"2006-01-02" time_utc:"1"`
}
