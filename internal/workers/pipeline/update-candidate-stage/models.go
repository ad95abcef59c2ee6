package updatecandidatestage

import "time"

type Input struct {
	TenantID    string `json:"tenantId"`
	CandidateID string `json:"candidateId"`
	Stage       string `json:"stage"`
	ActorID     string `json:"actorId"`
}

type Output struct {
	CandidateID    string    `json:"candidateId"`
	PreviousStage  string    `json:"previousStage"`
	Stage          string    `json:"stage"`
	TimelineLength int       `json:"timelineLength"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
