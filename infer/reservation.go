package infer

import (
	"fmt"

	"slurmsync/slurm"
)

// Reservation resolution for nodes.  A reservation applies only inside its time window; at most
// one reservation covers a node at any instant.  The node->reservation table is built once per
// poll and then consulted per node - never re-derived by rescanning all reservations per node,
// which is quadratic at fleet scale.

const NoReservation = "None"

type Reservation struct {
	Name      string
	StartTime int64
	EndTime   int64
	Nodes     []string
}

func ReservationsFromRaw(records []slurm.RawRecord) ([]Reservation, error) {
	reservations := make([]Reservation, 0, len(records))
	for _, raw := range records {
		name := raw.Str("reservation_name")
		if name == "" {
			return nil, fmt.Errorf("Reservation record without a name")
		}
		nodes, err := slurm.ExpandHostList(raw.Str("nodes"))
		if err != nil {
			return nil, fmt.Errorf("Reservation %s: %w", name, err)
		}
		r := Reservation{Name: name, Nodes: nodes}
		if t := raw.Epoch("start_time"); t != nil {
			r.StartTime = *t
		}
		if t := raw.Epoch("end_time"); t != nil {
			r.EndTime = *t
		}
		reservations = append(reservations, r)
	}
	return reservations, nil
}

// ActiveReservations builds the lookup table for the instant `now`.
func ActiveReservations(reservations []Reservation, now int64) map[string]string {
	byNode := make(map[string]string)
	for _, r := range reservations {
		if now < r.StartTime || now > r.EndTime {
			continue
		}
		for _, node := range r.Nodes {
			byNode[node] = r.Name
		}
	}
	return byNode
}

func reservationFor(byNode map[string]string, node string) string {
	if name, found := byNode[node]; found {
		return name
	}
	return NoReservation
}
