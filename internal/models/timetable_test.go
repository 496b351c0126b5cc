package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		raw     string
		minutes int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"23:59", 1439, false},
		{"9:30", 570, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"12", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		minutes, err := ParseClock(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.minutes, minutes, tc.raw)
	}
}

func TestClockIntervalValidate(t *testing.T) {
	assert.NoError(t, ClockInterval{StartTime: "09:00", EndTime: "10:00"}.Validate())
	assert.Error(t, ClockInterval{StartTime: "10:00", EndTime: "09:00"}.Validate())
	assert.Error(t, ClockInterval{StartTime: "10:00", EndTime: "10:00"}.Validate())
	assert.Error(t, ClockInterval{StartTime: "abc", EndTime: "10:00"}.Validate())
}

func TestClockIntervalOverlaps(t *testing.T) {
	nineToTen := ClockInterval{StartTime: "09:00", EndTime: "10:00"}
	halfNine := ClockInterval{StartTime: "09:30", EndTime: "10:30"}
	tenToEleven := ClockInterval{StartTime: "10:00", EndTime: "11:00"}
	inside := ClockInterval{StartTime: "09:15", EndTime: "09:45"}

	assert.True(t, nineToTen.Overlaps(halfNine))
	assert.True(t, nineToTen.Overlaps(inside))
	assert.True(t, nineToTen.Overlaps(nineToTen))

	// Touching endpoints never overlap.
	assert.False(t, nineToTen.Overlaps(tenToEleven))
	assert.False(t, tenToEleven.Overlaps(nineToTen))
}

func TestClockIntervalOverlapsIsSymmetric(t *testing.T) {
	intervals := []ClockInterval{
		{StartTime: "09:00", EndTime: "10:00"},
		{StartTime: "09:30", EndTime: "10:30"},
		{StartTime: "10:00", EndTime: "11:00"},
		{StartTime: "08:00", EndTime: "12:00"},
	}
	for _, a := range intervals {
		for _, b := range intervals {
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "%s vs %s", a, b)
		}
	}
}

func TestClockIntervalHours(t *testing.T) {
	assert.InDelta(t, 1.0, ClockInterval{StartTime: "09:00", EndTime: "10:00"}.Hours(), 1e-9)
	assert.InDelta(t, 1.5, ClockInterval{StartTime: "09:00", EndTime: "10:30"}.Hours(), 1e-9)
	assert.InDelta(t, 0.5, ClockInterval{StartTime: "13:30", EndTime: "14:00"}.Hours(), 1e-9)
}

func TestParseDayIsCaseSensitive(t *testing.T) {
	day, err := ParseDay("Monday")
	require.NoError(t, err)
	assert.Equal(t, Monday, day)

	_, err = ParseDay("monday")
	assert.Error(t, err)
	_, err = ParseDay("MONDAY")
	assert.Error(t, err)
	_, err = ParseDay("Funday")
	assert.Error(t, err)
}

func TestSessionValidate(t *testing.T) {
	valid := Session{
		CourseCode: "CS101",
		FacultyID:  "F1",
		Day:        Monday,
		TimeSlot:   ClockInterval{StartTime: "09:00", EndTime: "10:00"},
	}
	assert.NoError(t, valid.Validate())

	missingCourse := valid
	missingCourse.CourseCode = ""
	assert.Error(t, missingCourse.Validate())

	badDay := valid
	badDay.Day = "monday"
	assert.Error(t, badDay.Validate())

	badSlot := valid
	badSlot.TimeSlot = ClockInterval{StartTime: "10:00", EndTime: "09:00"}
	assert.Error(t, badSlot.Validate())
}

func TestDefaultCatalogs(t *testing.T) {
	days := WorkingDays()
	require.Len(t, days, 5)
	assert.Equal(t, Monday, days[0])
	assert.Equal(t, Friday, days[4])

	slots := DefaultTimeSlots()
	require.Len(t, slots, 7)
	for _, slot := range slots {
		assert.NoError(t, slot.Validate())
	}
	// The lunch break keeps 13:00-14:00 free.
	for _, slot := range slots {
		assert.NotEqual(t, "13:00", slot.StartTime)
	}
}
