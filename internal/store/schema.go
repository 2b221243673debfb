package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names shared by the repositories.
const (
	tableQuestions    = "questions"
	tableAnswerEvents = "answer_events"
	tableBookmarks    = "bookmarks"
	tableAccounts     = "accounts"
	tableNotices      = "notices"

	colID         = "id"
	colUserID     = "user_id"
	colQuestionID = "question_id"
	colExam       = "exam"
	colSubject    = "subject"
	colLabel      = "label"
	colText       = "text"
	colOptionA    = "option_a"
	colOptionB    = "option_b"
	colOptionC    = "option_c"
	colOptionD    = "option_d"
	colCorrect    = "correct"
	colSource     = "source"
	colAnsweredAt = "answered_at"
	colCreatedAt  = "created_at"

	colDisplayName = "display_name"
	colTargetExam  = "target_exam"
	colIsPublic    = "is_public"
)

var (
	// QuestionsColumns holds the columns for the "questions" table.
	QuestionsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64},
		{Name: colExam, Type: field.TypeString, Default: ""},
		{Name: colSubject, Type: field.TypeString, Default: ""},
		{Name: colLabel, Type: field.TypeString, Default: ""},
		{Name: colText, Type: field.TypeString, Size: 2147483647},
		{Name: colOptionA, Type: field.TypeString, Size: 2147483647},
		{Name: colOptionB, Type: field.TypeString, Size: 2147483647},
		{Name: colOptionC, Type: field.TypeString, Size: 2147483647},
		{Name: colOptionD, Type: field.TypeString, Size: 2147483647},
		{Name: colCorrect, Type: field.TypeString, Size: 1},
		{Name: colSource, Type: field.TypeString, Default: ""},
	}
	// QuestionsTable holds the schema information for the "questions" table.
	QuestionsTable = &schema.Table{
		Name:       tableQuestions,
		Columns:    QuestionsColumns,
		PrimaryKey: []*schema.Column{QuestionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "question_subject", Columns: []*schema.Column{QuestionsColumns[2]}},
			{Name: "question_exam", Columns: []*schema.Column{QuestionsColumns[1]}},
			{Name: "question_source", Columns: []*schema.Column{QuestionsColumns[10]}},
		},
	}

	// AnswerEventsColumns holds the columns for the "answer_events" table.
	// answered_at is unix milliseconds; id breaks ties between events
	// sharing a timestamp.
	AnswerEventsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: colUserID, Type: field.TypeString},
		{Name: colQuestionID, Type: field.TypeInt64},
		{Name: colCorrect, Type: field.TypeBool},
		{Name: colSubject, Type: field.TypeString, Default: ""},
		{Name: colAnsweredAt, Type: field.TypeInt64},
	}
	// AnswerEventsTable holds the schema information for the "answer_events" table.
	AnswerEventsTable = &schema.Table{
		Name:       tableAnswerEvents,
		Columns:    AnswerEventsColumns,
		PrimaryKey: []*schema.Column{AnswerEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "answerevent_user_id_answered_at", Columns: []*schema.Column{AnswerEventsColumns[1], AnswerEventsColumns[5]}},
			{Name: "answerevent_user_id_question_id", Columns: []*schema.Column{AnswerEventsColumns[1], AnswerEventsColumns[2]}},
		},
	}

	// BookmarksColumns holds the columns for the "bookmarks" table.
	BookmarksColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: colUserID, Type: field.TypeString},
		{Name: colQuestionID, Type: field.TypeInt64},
		{Name: colCreatedAt, Type: field.TypeInt64},
	}
	// BookmarksTable holds the schema information for the "bookmarks" table.
	// The unique index is what keeps one bookmark per user and question.
	BookmarksTable = &schema.Table{
		Name:       tableBookmarks,
		Columns:    BookmarksColumns,
		PrimaryKey: []*schema.Column{BookmarksColumns[0]},
		Indexes: []*schema.Index{
			{Name: "bookmark_user_id_question_id", Unique: true, Columns: []*schema.Column{BookmarksColumns[1], BookmarksColumns[2]}},
		},
	}

	// AccountsColumns holds the columns for the "accounts" table.
	AccountsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeString},
		{Name: "email", Type: field.TypeString, Unique: true},
		{Name: "password_hash", Type: field.TypeString},
		{Name: colDisplayName, Type: field.TypeString, Default: ""},
		{Name: "plan", Type: field.TypeString, Default: "free"},
		{Name: "plan_ends_at", Type: field.TypeInt64, Default: 0},
		{Name: "subscription_id", Type: field.TypeString, Default: ""},
		{Name: "customer_id", Type: field.TypeString, Default: ""},
		{Name: colCreatedAt, Type: field.TypeInt64},
		{Name: colTargetExam, Type: field.TypeString, Default: ""},
		{Name: colIsPublic, Type: field.TypeBool, Default: false},
	}
	// AccountsTable holds the schema information for the "accounts" table.
	AccountsTable = &schema.Table{
		Name:       tableAccounts,
		Columns:    AccountsColumns,
		PrimaryKey: []*schema.Column{AccountsColumns[0]},
	}

	// NoticesColumns holds the columns for the "notices" table.
	// starts_at and ends_at are unix milliseconds, 0 when unbounded.
	NoticesColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: "kind", Type: field.TypeString, Default: "news"},
		{Name: "title", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "action_url", Type: field.TypeString, Default: ""},
		{Name: "priority", Type: field.TypeInt, Default: 0},
		{Name: "active", Type: field.TypeBool, Default: true},
		{Name: "starts_at", Type: field.TypeInt64, Default: 0},
		{Name: "ends_at", Type: field.TypeInt64, Default: 0},
		{Name: colCreatedAt, Type: field.TypeInt64},
	}
	// NoticesTable holds the schema information for the "notices" table.
	NoticesTable = &schema.Table{
		Name:       tableNotices,
		Columns:    NoticesColumns,
		PrimaryKey: []*schema.Column{NoticesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "notice_active_priority", Columns: []*schema.Column{NoticesColumns[6], NoticesColumns[5]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		QuestionsTable,
		AnswerEventsTable,
		BookmarksTable,
		AccountsTable,
		NoticesTable,
	}
)
