package region

import "time"

// SeasonBucket groups scan dates by hunting-season phase for drift
// segmentation.
type SeasonBucket string

const (
	SeasonPreRut     SeasonBucket = "pre_rut"
	SeasonRut        SeasonBucket = "rut"
	SeasonPostRut    SeasonBucket = "post_rut"
	SeasonLateSeason SeasonBucket = "late_season"
	SeasonOffSeason  SeasonBucket = "off_season"
)

// seasonRange is a month/day window; End may wrap into the next year.
type seasonRange struct {
	bucket                           SeasonBucket
	startMonth, startDay             int
	endMonth, endDay                 int
}

// defaultSeasons is the whitetail season calendar used for every region.
// Per-region calendars can replace this once regional label volume justifies
// the split.
var defaultSeasons = []seasonRange{
	{SeasonPreRut, 9, 1, 10, 24},
	{SeasonRut, 10, 25, 11, 30},
	{SeasonPostRut, 12, 1, 12, 20},
	{SeasonLateSeason, 12, 21, 1, 31}, // wraps the year boundary
}

// Season returns the season bucket for a scan date. Dates outside every
// configured window fall into off_season.
func Season(t time.Time, _ Key) SeasonBucket {
	month, day := int(t.Month()), t.Day()
	for _, r := range defaultSeasons {
		if inRange(month, day, r) {
			return r.bucket
		}
	}
	return SeasonOffSeason
}

func inRange(month, day int, r seasonRange) bool {
	afterStart := month > r.startMonth || (month == r.startMonth && day >= r.startDay)
	beforeEnd := month < r.endMonth || (month == r.endMonth && day <= r.endDay)
	if r.startMonth <= r.endMonth {
		return afterStart && beforeEnd
	}
	// Window wraps the year boundary.
	return afterStart || beforeEnd
}
