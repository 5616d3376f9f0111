package models

import "time"

// Timestamps are ISO-8601 local time without a zone. The fraction is either
// six digits or absent when the time falls on a whole second.
const (
	TimestampLayout       = "2006-01-02T15:04:05.000000"
	TimestampLayoutSecond = "2006-01-02T15:04:05"
)

type Prediction struct {
	ID         int    `json:"id"`
	Filename   string `json:"filename"`
	Prediction string `json:"prediction"`
	Timestamp  string `json:"timestamp"`
}

func (p *Prediction) Key() int      { return p.ID }
func (p *Prediction) SetKey(id int) { p.ID = id }

// Stamp records t as the creation time of the prediction.
func (p *Prediction) Stamp(t time.Time) {
	t = t.Truncate(time.Microsecond)
	if t.Nanosecond() == 0 {
		p.Timestamp = t.Format(TimestampLayoutSecond)
		return
	}
	p.Timestamp = t.Format(TimestampLayout)
}
