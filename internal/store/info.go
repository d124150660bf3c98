package store

import "context"

// StoreInfo reports the schema version and live ticket counts by status.
func (s *Store) StoreInfo(ctx context.Context) (*StoreInfo, error) {
	version, err := currentVersion(s.db)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM tickets WHERE deleted = 0 GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	info := &StoreInfo{SchemaVersion: version, TicketCounts: map[string]int{}}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		info.TicketCounts[status] = count
		info.TotalTickets += count
	}
	return info, rows.Err()
}
