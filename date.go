package fattree

import (
	"time"
)

// ParseDate decodes a FAT date stamp relative to the MS-DOS epoch 1980-01-01:
//  Bits 0–4:  day of month, 1–31
//  Bits 5–8:  month of year, 1–12
//  Bits 9–15: count of years from 1980, 0–127
// The result has a time of 00:00:00 UTC.
//
// A day or month of 0 is invalid, time.Time{} is returned in that case so time.Time.IsZero() can be used.
// A month bigger than 12 rolls over into the next year.
func ParseDate(input uint16) time.Time {
	day := int(input & 0x1F)
	month := int((input >> 5) & 0x0F)
	year := 1980 + int(input>>9)

	if day == 0 || month == 0 {
		return time.Time{}
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ParseTime decodes a FAT time stamp with a granularity of 2 seconds:
//  Bits 0–4:   2-second count, 0–29
//  Bits 5–10:  minutes, 0–59
//  Bits 11–15: hours, 0–23
// The result is on January 1, year 1, so midnight is time.Time.IsZero().
// Out of range values are added up but capped at 23:59:59.
func ParseTime(input uint16) time.Time {
	seconds := int(input&0x1F) * 2
	minutes := int((input >> 5) & 0x3F)
	hours := int(input >> 11)

	result := time.Date(1, 1, 1, hours, minutes, seconds, 0, time.UTC)
	if result.Day() > 1 {
		return time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC)
	}

	return result
}

// ParseTimestamp joins a FAT date and time stamp.
// It returns time.Time{} if the date is invalid.
func ParseTimestamp(date, clock uint16) time.Time {
	d := ParseDate(date)
	if d.IsZero() {
		return time.Time{}
	}

	t := ParseTime(clock)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
