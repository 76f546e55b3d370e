// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON, validated with go-playground/validator tags:

  - CreateSurveyRequest: title, description, questions
  - CreateQuestionRequest: question_text, options, required, order_index
  - SubmitResponseRequest: survey_token, responses
  - AnswerRequest: question_id, option_id

# Response Types

  - CreateSurveyResponse: the created survey with its public token
  - SubmitResponseResponse: submission_id, message, remaining_slots, degraded
  - PublicSurveyResponse: survey view plus cached flag
  - AnalyticsResponse: analytics view plus cached flag
  - ListSurveysResponse: the admin's surveys
  - ErrorResponse: error, message, code, fields, retry_after

# Domain Types

  - Survey, Question, Option: a survey definition, immutable after creation
  - ResponseRow: one answered question of a submission
  - AdminUser: survey owner
  - SurveyView, AnalyticsView: cached read projections

Survey.AcceptsResponses applies the state rules shared by every read and
write path: a survey takes responses only while active, before its expiry,
and below its response ceiling. A survey expiring exactly now is expired.
*/
package models
