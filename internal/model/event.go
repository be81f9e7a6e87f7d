package model

// Event is a catalog entry. Timestamps are unix milliseconds.
//
// PointValue is the signed ledger delta applied when a ticket is issued:
// negative for paid events (the ticket price, debited from the holder's
// score) and positive for reward events (points granted for attending).
// The sign is the single explicit discriminator between the two issuance
// variants; there is no separate "kind" field to drift out of sync with it.
type Event struct {
	ID            int64   `json:"id"`
	StartTime     int64   `json:"start_time"`
	EndTime       int64   `json:"end_time"`
	Title         string  `json:"title"`
	HumanLocation string  `json:"human_location"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Details       string  `json:"details"`
	Image         string  `json:"image"` // 640x320 or 1280x640
	PointValue    int64   `json:"point_value"`
	LastSaleDate  int64   `json:"last_sale_date"`
}

// SaleOpen reports whether tickets can still be issued at the given time.
func (e *Event) SaleOpen(nowMillis int64) bool {
	return nowMillis <= e.LastSaleDate
}
