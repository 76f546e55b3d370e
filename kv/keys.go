// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kv

import "fmt"

// Keys follow {entityKind}:{lookupKind}:{lookupValue}. Each prefix below is
// owned by exactly one component.
const (
	surveyByTokenPrefix = "survey:token:"
	analyticsPrefix     = "analytics:survey:"
	voterPrefix         = "voter:survey:"
	votesPrefix         = "votes:survey:"
	submissionsPrefix   = "submissions:survey:"
	rateLimitPrefix     = "ratelimit:ip:"
)

// SurveyByToken is the cached public view of a survey
func SurveyByToken(token string) string {
	return surveyByTokenPrefix + token
}

// Analytics is the cached admin analytics view of a survey
func Analytics(surveyID string) string {
	return analyticsPrefix + surveyID
}

// Voter is the admission record for one voter on one survey
func Voter(surveyID, voterHash string) string {
	return fmt.Sprintf("%s%s:%s", voterPrefix, surveyID, voterHash)
}

// VoterPattern matches every admission record of a survey, for SCAN
func VoterPattern(surveyID string) string {
	return fmt.Sprintf("%s%s:*", voterPrefix, surveyID)
}

// Votes is the admitted-submission counter of a survey
func Votes(surveyID string) string {
	return votesPrefix + surveyID
}

// Submissions is the log of committed submission payloads of a survey
func Submissions(surveyID string) string {
	return submissionsPrefix + surveyID
}

// RateLimit is the sliding-window set for one client IP
func RateLimit(ip string) string {
	return rateLimitPrefix + ip
}
