package board

import (
	"time"

	"github.com/pkg/errors"
)

const rtcEpochYear = 2000

// Rtc returns the board clock. The clock keeps a two digit year and no zone,
// it is reported in UTC.
func (c *Card) Rtc() (time.Time, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	buf, err := c.read(RegRtcYear, 6)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "failed to read rtc")
	}
	return time.Date(rtcEpochYear+int(buf[0]), time.Month(buf[1]), int(buf[2]),
		int(buf[3]), int(buf[4]), int(buf[5]), 0, time.UTC), nil
}

func (c *Card) SetRtc(t time.Time) error {
	if t.Year() < rtcEpochYear || t.Year() > rtcEpochYear+99 {
		return errors.Wrapf(ErrRange, "rtc year %d not in [%d..%d]", t.Year(), rtcEpochYear, rtcEpochYear+99)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	err := c.write(RegRtcSetYear,
		uint8(t.Year()-rtcEpochYear), uint8(t.Month()), uint8(t.Day()),
		uint8(t.Hour()), uint8(t.Minute()), uint8(t.Second()),
		calibrationKey)
	if err != nil {
		return errors.Wrap(err, "failed to set rtc")
	}
	return nil
}
