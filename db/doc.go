// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles schema creation and the durable record store.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same DDL runs on PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).

# Tables

  - admin_users: Survey owners, keyed by email
  - surveys: Survey metadata, public token, expiry and response ceiling
  - questions: Ordered questions per survey
  - question_options: Choices per question, ordered by position
  - responses: One row per answered question, grouped by submission_id

# Relationships

	admin_users 1──* surveys
	surveys 1──* questions
	questions 1──* question_options
	surveys 1──* responses

All foreign keys use ON DELETE CASCADE. Surveys are soft-deleted through
deleted_at and then hidden from every lookup.

# Store

	store := db.NewStore(conn, cfg.DBTimeout)
	survey, err := store.FindActiveSurveyByToken(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		// 404
	}

Multi-row writes (CreateSurveyWithQuestions, InsertResponses) run in a single
transaction. Every call is bounded by the store timeout.
*/
package db
