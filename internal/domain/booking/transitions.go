package booking

// Event is something that happens to a booking.
type Event string

// Booking events. Attendance events share their names with the attendance
// status staff record.
const (
	EventCancel    Event = "cancel"
	EventCheckedIn Event = AttendanceCheckedIn
	EventNoShow    Event = AttendanceNoShow
	EventExcused   Event = AttendanceExcused
)

// Transition is a single allowed edge in the booking lifecycle.
type Transition struct {
	From  string
	To    string
	Event Event
}

// Every edge leaves booked; canceled, attended and no_show are terminal.
var transitionsTable = []Transition{
	{From: StatusBooked, To: StatusCanceled, Event: EventCancel},
	{From: StatusBooked, To: StatusAttended, Event: EventCheckedIn},
	{From: StatusBooked, To: StatusNoShow, Event: EventNoShow},
	{From: StatusBooked, To: StatusNoShow, Event: EventExcused},
}

// TransitionFor returns the allowed transition for a given status and event.
func TransitionFor(from string, ev Event) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}
