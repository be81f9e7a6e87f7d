// Package pass builds the Apple Wallet pass payload for an issued ticket.
//
// This is the boundary with the pass-packaging pipeline: it consumes a
// read-only (Ticket, Event, User) triple and produces the pass.json
// document. Zipping the archive and signing it with the pass certificate
// happen downstream and are out of scope here; nothing in this package
// touches ledger or ticket state.
package pass

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ma-central/macsvc/internal/model"
)

const (
	passTypeIdentifier = "pass.com.macsvc.campus"
	teamIdentifier     = "MACSVC0000"
	organizationName   = "Campus Services"
)

const termsText = "THIS TICKET IS A REVOCABLE LICENSE. The holder voluntarily assumes " +
	"all risks incident to the event. The issuer may revoke this license and " +
	"refuse entry for violation of venue rules, misconduct, or safety " +
	"concerns. There are no refunds or exchanges. Use of this ticket " +
	"constitutes acceptance of these terms."

// field is one display field inside a pass.
type field struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Value      string `json:"value"`
	DateStyle  string `json:"dateStyle,omitempty"`
	TimeStyle  string `json:"timeStyle,omitempty"`
	IsRelative bool   `json:"isRelative,omitempty"`
}

type barcode struct {
	Message         string `json:"message"`
	Format          string `json:"format"`
	MessageEncoding string `json:"messageEncoding"`
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type eventTicket struct {
	PrimaryFields   []field `json:"primaryFields"`
	SecondaryFields []field `json:"secondaryFields"`
	AuxiliaryFields []field `json:"auxiliaryFields,omitempty"`
	BackFields      []field `json:"backFields"`
}

// document is the pass.json top level.
type document struct {
	FormatVersion      int         `json:"formatVersion"`
	PassTypeIdentifier string      `json:"passTypeIdentifier"`
	SerialNumber       string      `json:"serialNumber"`
	TeamIdentifier     string      `json:"teamIdentifier"`
	RelevantDate       string      `json:"relevantDate"`
	ExpirationDate     string      `json:"expirationDate"`
	Locations          []location  `json:"locations"`
	Barcode            barcode     `json:"barcode"`
	OrganizationName   string      `json:"organizationName"`
	Description        string      `json:"description"`
	ForegroundColor    string      `json:"foregroundColor"`
	BackgroundColor    string      `json:"backgroundColor"`
	EventTicket        eventTicket `json:"eventTicket"`
}

func iso8601(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(time.RFC3339)
}

// Payload renders the pass.json document for a ticket. The barcode message
// is the ticket's opaque ID — the same value the admin scanner feeds to the
// redemption endpoint. Passes stay relevant until a day after the event
// ends.
func Payload(ticket *model.Ticket, event *model.Event, user *model.User) ([]byte, error) {
	doc := document{
		FormatVersion:      1,
		PassTypeIdentifier: passTypeIdentifier,
		SerialNumber:       ticket.ID,
		TeamIdentifier:     teamIdentifier,
		RelevantDate:       iso8601(event.StartTime),
		ExpirationDate:     iso8601(event.EndTime + 24*time.Hour.Milliseconds()),
		Locations: []location{
			{Latitude: event.Latitude, Longitude: event.Longitude},
		},
		Barcode: barcode{
			Message:         ticket.ID,
			Format:          "PKBarcodeFormatPDF417",
			MessageEncoding: "iso-8859-1",
		},
		OrganizationName: organizationName,
		Description:      "Campus Event Ticket",
		ForegroundColor:  "rgb(255, 255, 255)",
		BackgroundColor:  "rgb(255, 255, 255)",
		EventTicket: eventTicket{
			PrimaryFields: []field{
				{Key: "event", Label: "EVENT", Value: event.Title},
			},
			SecondaryFields: []field{
				{
					Key:        "date",
					Label:      "DATE",
					Value:      iso8601(event.StartTime),
					DateStyle:  "PKDateStyleMedium",
					TimeStyle:  "PKDateStyleShort",
					IsRelative: true,
				},
				{Key: "loc", Label: "LOCATION", Value: event.HumanLocation},
			},
			AuxiliaryFields: []field{
				{Key: "holder", Label: "HOLDER", Value: fmt.Sprintf("%s - %s", user.StudentID, user.Username)},
			},
			BackFields: []field{
				{Key: "description", Label: "Event Description", Value: event.Details},
				{Key: "serial", Label: "Ticket Serial", Value: ticket.Serial},
				{Key: "terms", Label: "Terms and Conditions", Value: termsText},
				{Key: "creation_date", Label: "Creation Timestamp", Value: fmt.Sprintf("%d", ticket.CreationDate)},
			},
		},
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("pass: encoding payload: %w", err)
	}
	return payload, nil
}
