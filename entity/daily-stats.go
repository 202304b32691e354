package entity

// DailyStats aggregates issuance counters for one calendar day.
// Invariant: Total == Admin + User after every mutation.
type DailyStats struct {
	Date  string        `json:"date"`
	Total int           `json:"total_invites"`
	Admin int           `json:"admin_invites"`
	User  int           `json:"user_invites"`
	Users map[int64]int `json:"users"`
}

// SumStats folds a window of daily buckets into overall totals.
func SumStats(days []DailyStats) (total, admin, user int) {
	for _, d := range days {
		total += d.Total
		admin += d.Admin
		user += d.User
	}
	return total, admin, user
}
