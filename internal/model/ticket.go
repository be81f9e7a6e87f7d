package model

import "fmt"

// Ticket is proof of issuance for one (holder, event) pair.
//
// ID is an opaque xid: globally unique, URL-safe, and what the barcode and
// redemption path key on. Serial is the legacy human-readable composite
// (event id, zero-padded holder id, creation-time window) kept purely for
// display; it is not unique and nothing must ever look a ticket up by it.
//
// Expended transitions 0→1 exactly once, at redemption, and never reverts.
type Ticket struct {
	ID           string `json:"id"`
	Serial       string `json:"serial"`
	EventID      int64  `json:"event_id"`
	HolderID     int64  `json:"holder_id"`
	SingleEntry  bool   `json:"single_entry"`
	Expended     bool   `json:"expended"`
	CreationDate int64  `json:"creation_date"` // unix milliseconds
}

// serialWindow is the modulus applied to the creation timestamp when
// building the display serial. Five digits of padding to match.
const serialWindow = 100000

// TicketSerial builds the display serial from its historical components:
// the event id, the holder id padded to nine digits, and the creation time
// modulo a fixed window padded to five.
func TicketSerial(eventID, holderID, creationMillis int64) string {
	return fmt.Sprintf("%d%09d%05d", eventID, holderID, creationMillis%serialWindow)
}
