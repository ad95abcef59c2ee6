package models

import "time"

// Stage is a candidate's position in the hiring pipeline.
type Stage string

const (
	StageApplied   Stage = "applied"
	StageScreening Stage = "screening"
	StageInterview Stage = "interview"
	StageOffer     Stage = "offer"
	StageHired     Stage = "hired"
	StageRejected  Stage = "rejected"
	StageArchived  Stage = "archived"
)

// AllStages lists every stage in pipeline order.
var AllStages = []Stage{
	StageApplied,
	StageScreening,
	StageInterview,
	StageOffer,
	StageHired,
	StageRejected,
	StageArchived,
}

// Valid reports whether s is one of the enumerated stages.
func (s Stage) Valid() bool {
	for _, known := range AllStages {
		if s == known {
			return true
		}
	}
	return false
}

// TimelineAction is the kind of a timeline entry.
type TimelineAction string

const (
	ActionStatusChange TimelineAction = "status_change"
	ActionNote         TimelineAction = "note"
	ActionEmail        TimelineAction = "email"
	ActionUpload       TimelineAction = "upload"
	ActionScore        TimelineAction = "score"
)

// TimelineEntry is one append-only audit record. From and To are set for status changes.
type TimelineEntry struct {
	Action      TimelineAction `json:"action"`
	Details     string         `json:"details"`
	PerformedBy string         `json:"performedBy"`
	Timestamp   time.Time      `json:"timestamp"`
	From        Stage          `json:"from,omitempty"`
	To          Stage          `json:"to,omitempty"`
}

type Note struct {
	Text      string    `json:"text"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ScoreEntry is one reviewer's rubric evaluation.
type ScoreEntry struct {
	UserID     string                 `json:"userId"`
	RubricID   string                 `json:"rubricId"`
	Values     map[string]interface{} `json:"values,omitempty"`
	FinalScore float64                `json:"finalScore"`
	Comments   string                 `json:"comments,omitempty"`
}

// ParsedProfile holds fields extracted from a resume by the external parser.
type ParsedProfile struct {
	Skills    []string `json:"skills,omitempty"`
	ExpYears  float64  `json:"expYears,omitempty"`
	Companies []string `json:"companies,omitempty"`
}

// Candidate is one applicant's relationship to one organization.
type Candidate struct {
	ID              string          `json:"id"`
	OrgID           string          `json:"orgId"`
	Name            string          `json:"name"`
	Emails          []string        `json:"emails"`
	Phones          []string        `json:"phones"`
	PositionApplied *string         `json:"positionApplied"`
	Stage           Stage           `json:"stage"`
	Source          string          `json:"source"`
	Tags            []string        `json:"tags"`
	Priority        bool            `json:"priority"`
	IsTalentPool    bool            `json:"isTalentPool"`
	Parsed          *ParsedProfile  `json:"parsed,omitempty"`
	AssignedTo      []string        `json:"assignedTo,omitempty"`
	NoticePeriod    string          `json:"noticePeriod,omitempty"`
	ExpectedSalary  string          `json:"expectedSalary,omitempty"`
	LinkedIn        string          `json:"linkedin,omitempty"`
	InterviewDate   *time.Time      `json:"interviewDate,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	Ratings         int             `json:"ratings"`
	Scores          []ScoreEntry    `json:"scores"`
	FinalScore      int             `json:"finalScore"`
	Timeline        []TimelineEntry `json:"timeline"`
	Notes           []Note          `json:"notes"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy so stored records never alias caller-owned slices.
func (c *Candidate) Clone() *Candidate {
	if c == nil {
		return nil
	}
	out := *c
	out.Emails = cloneSlice(c.Emails)
	out.Phones = cloneSlice(c.Phones)
	out.Tags = cloneSlice(c.Tags)
	out.AssignedTo = cloneSlice(c.AssignedTo)
	out.Timeline = cloneSlice(c.Timeline)
	out.Notes = cloneSlice(c.Notes)
	if c.PositionApplied != nil {
		v := *c.PositionApplied
		out.PositionApplied = &v
	}
	if c.InterviewDate != nil {
		v := *c.InterviewDate
		out.InterviewDate = &v
	}
	if c.Parsed != nil {
		p := *c.Parsed
		p.Skills = cloneSlice(c.Parsed.Skills)
		p.Companies = cloneSlice(c.Parsed.Companies)
		out.Parsed = &p
	}
	out.Scores = nil
	if c.Scores != nil {
		out.Scores = make([]ScoreEntry, len(c.Scores))
	}
	for i, s := range c.Scores {
		if s.Values != nil {
			values := make(map[string]interface{}, len(s.Values))
			for k, v := range s.Values {
				values[k] = v
			}
			s.Values = values
		}
		out.Scores[i] = s
	}
	return &out
}

// cloneSlice copies s, keeping nil and empty distinct.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// CandidateInput carries the writable fields for create and bulk import.
// Pipeline-owned fields (stage, scores, finalScore, timeline, notes) are not accepted.
type CandidateInput struct {
	Name            string         `json:"name" yaml:"name"`
	Emails          []string       `json:"emails" yaml:"emails"`
	Phones          []string       `json:"phones" yaml:"phones"`
	PositionApplied *string        `json:"positionApplied" yaml:"positionApplied"`
	Source          string         `json:"source" yaml:"source"`
	Tags            []string       `json:"tags" yaml:"tags"`
	Priority        bool           `json:"priority" yaml:"priority"`
	IsTalentPool    bool           `json:"isTalentPool" yaml:"isTalentPool"`
	Parsed          *ParsedProfile `json:"parsed,omitempty" yaml:"parsed"`
	AssignedTo      []string       `json:"assignedTo,omitempty" yaml:"assignedTo"`
	NoticePeriod    string         `json:"noticePeriod,omitempty" yaml:"noticePeriod"`
	ExpectedSalary  string         `json:"expectedSalary,omitempty" yaml:"expectedSalary"`
	LinkedIn        string         `json:"linkedin,omitempty" yaml:"linkedin"`
	InterviewDate   *time.Time     `json:"interviewDate,omitempty" yaml:"interviewDate"`
	Ratings         int            `json:"ratings" yaml:"ratings"`
}

// CandidatePatch is a partial profile update. Nil fields are left untouched;
// Emails and Phones are appended rather than replaced.
type CandidatePatch struct {
	Name            *string    `json:"name,omitempty"`
	Emails          []string   `json:"emails,omitempty"`
	Phones          []string   `json:"phones,omitempty"`
	PositionApplied *string    `json:"positionApplied,omitempty"`
	Source          *string    `json:"source,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Priority        *bool      `json:"priority,omitempty"`
	IsTalentPool    *bool      `json:"isTalentPool,omitempty"`
	AssignedTo      []string   `json:"assignedTo,omitempty"`
	NoticePeriod    *string    `json:"noticePeriod,omitempty"`
	ExpectedSalary  *string    `json:"expectedSalary,omitempty"`
	LinkedIn        *string    `json:"linkedin,omitempty"`
	InterviewDate   *time.Time `json:"interviewDate,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	Ratings         *int       `json:"ratings,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p CandidatePatch) Empty() bool {
	return p.Name == nil && len(p.Emails) == 0 && len(p.Phones) == 0 && p.PositionApplied == nil &&
		p.Source == nil && p.Tags == nil && p.Priority == nil && p.IsTalentPool == nil &&
		p.AssignedTo == nil && p.NoticePeriod == nil && p.ExpectedSalary == nil && p.LinkedIn == nil &&
		p.InterviewDate == nil && p.RejectionReason == nil && p.Ratings == nil
}

// Apply writes the patch onto c.
func (p CandidatePatch) Apply(c *Candidate) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	c.Emails = append(c.Emails, p.Emails...)
	c.Phones = append(c.Phones, p.Phones...)
	if p.PositionApplied != nil {
		v := *p.PositionApplied
		c.PositionApplied = &v
	}
	if p.Source != nil {
		c.Source = *p.Source
	}
	if p.Tags != nil {
		c.Tags = append([]string(nil), p.Tags...)
	}
	if p.Priority != nil {
		c.Priority = *p.Priority
	}
	if p.IsTalentPool != nil {
		c.IsTalentPool = *p.IsTalentPool
	}
	if p.AssignedTo != nil {
		c.AssignedTo = append([]string(nil), p.AssignedTo...)
	}
	if p.NoticePeriod != nil {
		c.NoticePeriod = *p.NoticePeriod
	}
	if p.ExpectedSalary != nil {
		c.ExpectedSalary = *p.ExpectedSalary
	}
	if p.LinkedIn != nil {
		c.LinkedIn = *p.LinkedIn
	}
	if p.InterviewDate != nil {
		v := *p.InterviewDate
		c.InterviewDate = &v
	}
	if p.RejectionReason != nil {
		c.RejectionReason = *p.RejectionReason
	}
	if p.Ratings != nil {
		c.Ratings = *p.Ratings
	}
}

// CandidateFilter narrows a tenant's candidate list. Empty fields match everything.
type CandidateFilter struct {
	JobID string `json:"jobId,omitempty"`
	Stage Stage  `json:"stage,omitempty"`
}

// Matches reports whether c satisfies the filter.
func (f CandidateFilter) Matches(c *Candidate) bool {
	if f.Stage != "" && c.Stage != f.Stage {
		return false
	}
	if f.JobID != "" && (c.PositionApplied == nil || *c.PositionApplied != f.JobID) {
		return false
	}
	return true
}

// BulkImportFailure reports one rejected import record by its input position.
type BulkImportFailure struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkImportResult is the per-record outcome of a bulk import.
type BulkImportResult struct {
	Created []*Candidate        `json:"created"`
	Failed  []BulkImportFailure `json:"failed"`
}
