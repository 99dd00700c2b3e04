package models

import "fmt"

// SyncReport aggregates the per-run counters. A run always terminates
// normally and reports these regardless of entity-level failures.
type SyncReport struct {
	FundsProcessed int `json:"funds_processed"`
	FundsFailed    int `json:"funds_failed"`
	Fetched        int `json:"fetched"`
	Malformed      int `json:"malformed"`
	Provisional    int `json:"provisional"`
	Duplicates     int `json:"duplicates"`
	Inserted       int `json:"inserted"`
}

// Add merges another report into r.
func (r *SyncReport) Add(other SyncReport) {
	r.FundsProcessed += other.FundsProcessed
	r.FundsFailed += other.FundsFailed
	r.Fetched += other.Fetched
	r.Malformed += other.Malformed
	r.Provisional += other.Provisional
	r.Duplicates += other.Duplicates
	r.Inserted += other.Inserted
}

// Summary returns a single-line rendering suitable for a log line or
// exit message.
func (r SyncReport) Summary() string {
	return fmt.Sprintf("funds=%d failed=%d fetched=%d malformed=%d provisional=%d duplicates=%d inserted=%d",
		r.FundsProcessed, r.FundsFailed, r.Fetched, r.Malformed, r.Provisional, r.Duplicates, r.Inserted)
}
