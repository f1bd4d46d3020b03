package dto

import "github.com/dens-health/casetrack-api/internal/models"

// DashboardSummary is the clinic landing payload: counts per workflow stage
// plus the most recent cases.
type DashboardSummary struct {
	Counts models.StatusCounts `json:"counts"`
	Recent []models.Case       `json:"recent"`
	Labs   []string            `json:"labs"`
}
