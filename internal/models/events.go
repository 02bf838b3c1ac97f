package models

import "time"

// RequestEvent is the domain event emitted after every successful claim or
// transition. It is consumed by the notification and activity-log
// collaborators; the core never blocks on its delivery.
type RequestEvent struct {
	RequestID string        `json:"request_id"`
	From      RequestStatus `json:"from"`
	To        RequestStatus `json:"to"`
	ActorID   string        `json:"actor_id"`
	Timestamp time.Time     `json:"timestamp"`
}

// MatchAnnouncement is handed to the notification collaborator after a rank
// call so the top mechanics can be alerted about a new request.
type MatchAnnouncement struct {
	RequestID         string    `json:"request_id"`
	RankedMechanicIDs []string  `json:"ranked_mechanic_ids"`
	Urgency           Urgency   `json:"urgency"`
	Timestamp         time.Time `json:"timestamp"`
}
