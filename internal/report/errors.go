package report

import "errors"

var (
	// ErrLoadFailure marks a statistics document that could not be fetched or parsed.
	ErrLoadFailure = errors.New("statistics load failure")
	// ErrUnknownReport marks a report type with no page definition.
	ErrUnknownReport = errors.New("unknown report type")
)

// IssueKind classifies a non-fatal rendering condition.
type IssueKind string

const (
	IssueMissingMetric    IssueKind = "missing_metric"
	IssueMalformedRecord  IssueKind = "malformed_record"
	IssueMissingContainer IssueKind = "missing_container"
)

// Issue is a degraded panel or a skipped entry. Issues never abort a render.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Key    string    `json:"key"`
	Panel  string    `json:"panel,omitempty"`
	Index  int       `json:"index"`
	Detail string    `json:"detail,omitempty"`
}

func malformed(key string, index int, detail string) Issue {
	return Issue{Kind: IssueMalformedRecord, Key: key, Index: index, Detail: detail}
}
