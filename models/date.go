package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
)

// Date is a calendar date stored in a Postgres DATE column and rendered as
// YYYY-MM-DD in JSON.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{Time: availability.DateOf(t)}
}

func (Date) GormDataType() string { return "date" }

func (d Date) String() string { return availability.FormatDate(d.Time) }

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return availability.FormatDate(d.Time), nil
}

func (d *Date) Scan(v interface{}) error {
	switch t := v.(type) {
	case nil:
		d.Time = time.Time{}
	case time.Time:
		d.Time = availability.DateOf(t)
	case string:
		return d.parse(t)
	case []byte:
		return d.parse(string(t))
	default:
		return fmt.Errorf("cannot scan %T into Date", v)
	}
	return nil
}

func (d *Date) parse(s string) error {
	if len(s) > len(availability.DateLayout) {
		s = s[:len(availability.DateLayout)]
	}
	t, err := availability.ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		d.Time = time.Time{}
		return nil
	}
	return d.parse(*s)
}
