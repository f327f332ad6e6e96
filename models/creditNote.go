package models

import (
	"context"

	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// CreditNote reduces what the customer owes (returns, rate differences, weight shortages).
type CreditNote struct {
	AdjustmentNote `gorm:"embedded"`
}

func CreateCreditNote(ctx context.Context, input *NewNote) (*CreditNote, error) {
	return createNote[CreditNote](ctx, creditNoteBook, input)
}

func DeleteCreditNote(ctx context.Context, id int) (*CreditNote, error) {
	return deleteNote[CreditNote](ctx, creditNoteBook, id)
}

func GetCreditNote(ctx context.Context, id int) (*CreditNote, error) {
	return utils.FetchModel[CreditNote](ctx, id)
}

func ListCreditNotes(ctx context.Context, filter NoteFilter) ([]*CreditNote, *PageInfo, error) {
	return listNotes[CreditNote](ctx, filter)
}
