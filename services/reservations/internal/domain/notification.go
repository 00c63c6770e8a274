package domain

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
)

const departLayout = "02/01/2006 15:04"

type NotificationRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	PlainBody string `json:"text"`
	RichBody  string `json:"html"`
}

// BuildConfirmation renders the confirmation sent after a seat is booked.
// Departure is shown in loc; a nil loc means UTC.
func BuildConfirmation(traveler *User, trip *Trip, seat int, reservationID int64, loc *time.Location) NotificationRequest {
	if loc == nil {
		loc = time.UTC
	}

	bus := strconv.FormatInt(trip.BusID, 10)
	if trip.Bus != nil && trip.Bus.Plate != "" {
		bus = trip.Bus.Plate
	}
	depart := "-"
	if !trip.DepartAt.IsZero() {
		depart = trip.DepartAt.In(loc).Format(departLayout)
	}
	price := "-"
	if trip.Price != nil {
		price = strconv.FormatFloat(*trip.Price, 'f', -1, 64)
	}
	name := traveler.DisplayName()
	route := trip.Origin + " -> " + trip.Destination

	var text strings.Builder
	fmt.Fprintf(&text, "Hello %s,\n\n", name)
	fmt.Fprintf(&text, "Your reservation (ID: %d) for the trip %s has been confirmed.\n\n", reservationID, route)
	text.WriteString("Details:\n")
	fmt.Fprintf(&text, "- Bus: %s\n", bus)
	fmt.Fprintf(&text, "- Departure: %s\n", depart)
	fmt.Fprintf(&text, "- Seat: %d\n", seat)
	fmt.Fprintf(&text, "- Price: %s\n\n", price)
	text.WriteString("Thank you.")

	esc := html.EscapeString
	var rich strings.Builder
	fmt.Fprintf(&rich, "<p>Hello %s,</p>\n", esc(name))
	fmt.Fprintf(&rich, "<p>Your reservation (ID: <strong>%d</strong>) for the trip <strong>%s &rarr; %s</strong> has been confirmed.</p>\n",
		reservationID, esc(trip.Origin), esc(trip.Destination))
	rich.WriteString("<ul>\n")
	fmt.Fprintf(&rich, "  <li><strong>Bus:</strong> %s</li>\n", esc(bus))
	fmt.Fprintf(&rich, "  <li><strong>Departure:</strong> %s</li>\n", depart)
	fmt.Fprintf(&rich, "  <li><strong>Seat:</strong> %d</li>\n", seat)
	fmt.Fprintf(&rich, "  <li><strong>Price:</strong> %s</li>\n", price)
	rich.WriteString("</ul>\n<p>Thank you.</p>")

	return NotificationRequest{
		Recipient: traveler.Email,
		Subject:   "Reservation confirmed - trip " + route,
		PlainBody: text.String(),
		RichBody:  rich.String(),
	}
}
