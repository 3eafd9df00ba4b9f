package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseSubmissionThread(t *testing.T) {
	created := time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		thread     string
		wantOK     bool
		wantNumber int
		wantAuthor string
		wantStatus SubmissionStatus
	}{
		{name: "open", thread: SubmissionThreadName(7, "1234"), wantOK: true, wantNumber: 7, wantAuthor: "1234", wantStatus: SubmissionOpen},
		{name: "accepted", thread: MarkThreadName(SubmissionThreadName(7, "1234"), SubmissionAccepted), wantOK: true, wantNumber: 7, wantAuthor: "1234", wantStatus: SubmissionAccepted},
		{name: "declined", thread: MarkThreadName(SubmissionThreadName(12, "99"), SubmissionDeclined), wantOK: true, wantNumber: 12, wantAuthor: "99", wantStatus: SubmissionDeclined},
		{name: "foreign thread", thread: "general chat", wantOK: false},
		{name: "zero number", thread: "0 — 1234", wantOK: false},
		{name: "missing author", thread: "7 — ", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, ok := ParseSubmissionThread(Thread{ID: "t1", GuildID: "g1", Name: tt.thread, CreatedAt: created})
			if ok != tt.wantOK {
				t.Fatalf("ParseSubmissionThread(%q) ok = %v, want %v", tt.thread, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if sub.QuestionNumber != tt.wantNumber || sub.AuthorID != tt.wantAuthor || sub.Status != tt.wantStatus {
				t.Fatalf("unexpected submission: %+v", sub)
			}
			if sub.SessionID != "t1" || sub.GuildID != "g1" || !sub.CreatedAt.Equal(created) {
				t.Fatalf("thread metadata not carried over: %+v", sub)
			}
		})
	}
}

func TestMarkThreadNameReplacesMark(t *testing.T) {
	name := MarkThreadName(SubmissionThreadName(3, "42"), SubmissionDeclined)
	name = MarkThreadName(name, SubmissionAccepted)
	if name != "✅ 3 — 42" {
		t.Fatalf("unexpected name %q", name)
	}
}

func TestSortPendingOrdersByPriorityThenAge(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	questions := []Question{
		{ID: 1, Text: "old low", Priority: 0, CreatedAt: base},
		{ID: 2, Text: "new high", Priority: 5, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, Text: "old high", Priority: 5, CreatedAt: base.Add(time.Hour)},
	}
	SortPending(questions)
	got := []int64{questions[0].ID, questions[1].ID, questions[2].ID}
	want := []int64{3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	if !errors.Is(ErrInvalidPriority, ErrValidation) {
		t.Fatal("invalid priority must be a validation error")
	}
	if !errors.Is(ErrNotConfigured, ErrNotFound) {
		t.Fatal("not configured must be a not-found error")
	}
	storage := &StorageError{Op: "increment", Err: errors.New("boom")}
	if !errors.Is(storage, ErrStorage) {
		t.Fatal("StorageError must match ErrStorage")
	}
	if !errors.Is(&ValidationError{Field: "text", Reason: "blank"}, ErrValidation) {
		t.Fatal("ValidationError must match ErrValidation")
	}
}
